package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faktum-db/faktum/db"
	"github.com/faktum-db/faktum/fact"
	"github.com/faktum-db/faktum/httpapi"
	"github.com/faktum-db/faktum/schema"
)

const attrName fact.Attribute = ":person/name"

func testServer(t *testing.T) (*httptest.Server, *db.Connection) {
	t.Helper()
	sc := schema.New(schema.NonStrict)
	sc, err := sc.WithAttr(schema.AttributeSchema{Attribute: attrName, ValueType: fact.TagString, Cardinality: schema.CardinalityOne})
	require.NoError(t, err)

	conn := db.Create(sc)
	h := httpapi.NewHandler(conn)
	srv := httptest.NewServer(httpapi.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, conn
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(encoded))
	require.NoError(t, err)
	return resp
}

func TestHealth_ReportsBasisT(t *testing.T) {
	srv, _ := testServer(t)
	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body httpapi.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body.Status)
	require.Equal(t, fact.GenesisTx, body.BasisT)
}

func TestTransactThenQuery_RoundTrips(t *testing.T) {
	srv, _ := testServer(t)

	nameVal := fact.StringValue("Alice")
	req := httpapi.TransactRequest{
		Ops: []httpapi.OpDTO{
			{
				Kind: "add",
				E:    httpapi.EntityRefDTO{Temp: "alice"},
				A:    attrName,
				V:    &httpapi.ValueRefDTO{Literal: &nameVal},
			},
		},
	}
	resp := postJSON(t, srv.URL+"/api/db/transact", req)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var txResp httpapi.TransactResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&txResp))
	alice, ok := txResp.TempIDs["alice"]
	require.True(t, ok)

	queryReq := httpapi.QueryRequest{
		Find: []string{"?n"},
		Where: []httpapi.PatternDTO{
			{
				E: httpapi.TermDTO{Const: func() *fact.Value { v := fact.RefValue(alice); return &v }()},
				A: httpapi.TermDTO{Const: func() *fact.Value { v := fact.KeywordValue(string(attrName)); return &v }()},
				V: httpapi.TermDTO{Var: "?n"},
			},
		},
	}
	resp2 := postJSON(t, srv.URL+"/api/db/query", queryReq)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var qResp httpapi.QueryResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&qResp))
	require.Len(t, qResp.Rows, 1)
	s, ok := qResp.Rows[0][0].AsString()
	require.True(t, ok)
	require.Equal(t, "Alice", s)
}

func TestStats_CountsDatoms(t *testing.T) {
	srv, conn := testServer(t)
	_, _, err := conn.Transact(nil)
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats httpapi.StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Equal(t, fact.TxID(fact.GenesisTx+1), stats.BasisT)
	require.Equal(t, 0, stats.DatomCount)
}
