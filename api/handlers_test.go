package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stockroom/supply-engine/api"
	"github.com/stockroom/supply-engine/core"
	"github.com/stockroom/supply-engine/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := core.NewEngine(store)
	server := httptest.NewServer(api.NewRouter(api.NewHandler(engine)))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func doJSONList(t *testing.T, url string) (*http.Response, []map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func createPaperItem(t *testing.T, server *httptest.Server, stock int64) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/items", api.CreateItemBody{
		ItemCode:          "PAPER-A4",
		Description:       "Bond Paper A4",
		UnitOfMeasure:     "ream",
		StandardUnitPrice: "250.00",
		ReorderLevel:      20,
		InitialStock:      stock,
		ActorID:           "officer-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["id"].(string)
}

func createPaperRequest(t *testing.T, server *httptest.Server) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/requests", api.CreateRequestBody{
		RequesterID: "emp-1",
		Priority:    "Normal",
		Items: []api.RequestLineBody{
			{Description: "Bond Paper A4", Quantity: 10, UnitOfMeasure: "ream"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["id"].(string)
}

// =============================================================================
// REQUEST ENDPOINTS
// =============================================================================

func TestAPI_CreateAndGetRequest(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/requests", api.CreateRequestBody{
		RequesterID: "emp-1",
		Priority:    "High",
		Items: []api.RequestLineBody{
			{Description: "Bond Paper A4", Quantity: 10, UnitOfMeasure: "ream"},
			{Description: "Stapler", Quantity: 2, UnitOfMeasure: "pc"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Submitted", body["status"])
	assert.Contains(t, body["tracking_id"], "-SR-001")
	id := body["id"].(string)

	resp, got := doJSON(t, http.MethodGet, server.URL+"/api/requests/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "High", got["priority"])
	assert.Len(t, got["items"], 2)
}

func TestAPI_CreateRequest_Invalid(t *testing.T) {
	server := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/requests", api.CreateRequestBody{
		RequesterID: "emp-1",
		Priority:    "Normal",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GetRequest_NotFound(t *testing.T) {
	server := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, server.URL+"/api/requests/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_Transition_LegalAndIllegal(t *testing.T) {
	server := newTestServer(t)
	id := createPaperRequest(t, server)

	resp, body := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/requests/%s/transition", server.URL, id),
		api.TransitionBody{Status: "Not Available", ActorID: "officer-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Not Available", body["status"])

	// Jumping to Approved from Not Available is illegal
	resp, _ = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/requests/%s/transition", server.URL, id),
		api.TransitionBody{Status: "Approved", ActorID: "officer-1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_RequestHistory(t *testing.T) {
	server := newTestServer(t)
	id := createPaperRequest(t, server)

	doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/requests/%s/transition", server.URL, id),
		api.TransitionBody{Status: "Not Available", ActorID: "officer-1", Remarks: "out of stock"})

	resp, trail := doJSONList(t, fmt.Sprintf("%s/api/requests/%s/history", server.URL, id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, trail, 2)

	assert.Nil(t, trail[0]["previous_status"])
	assert.Equal(t, "Submitted", trail[0]["current_status"])
	assert.Equal(t, "N/A", trail[0]["office"])
	assert.Equal(t, "Submitted", trail[1]["previous_status"])
	assert.Equal(t, "Not Available", trail[1]["current_status"])
	assert.Equal(t, "out of stock", trail[1]["remarks"])
}

func TestAPI_ListRequests_ByStatus(t *testing.T) {
	server := newTestServer(t)
	createPaperRequest(t, server)
	createPaperRequest(t, server)

	resp, list := doJSONList(t, server.URL+"/api/requests?status=Submitted")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list, 2)

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/requests?status=Bogus", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// ISSUANCE ENDPOINTS
// =============================================================================

func TestAPI_Issue_FullFlow(t *testing.T) {
	// GIVEN: 50 reams in stock and a submitted request for 10
	// WHEN: POSTing the issue
	// THEN: The slip comes back priced, stock drops, and a second issue
	//       conflicts

	server := newTestServer(t)
	itemID := createPaperItem(t, server, 50)
	reqID := createPaperRequest(t, server)

	resp, slip := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/requests/%s/issue", server.URL, reqID),
		api.IssueBody{ActorID: "officer-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Contains(t, slip["ris_number"], "RIS-")
	assert.Equal(t, "2500", slip["total_amount"])
	assert.Equal(t, "Generated", slip["status"])

	resp, item := doJSON(t, http.MethodGet, server.URL+"/api/items/"+itemID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(40), item["stock_on_hand"])

	resp, _ = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/requests/%s/issue", server.URL, reqID),
		api.IssueBody{ActorID: "officer-1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Slip retrievable afterwards
	resp, got := doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/requests/%s/ris", server.URL, reqID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, slip["ris_number"], got["ris_number"])
}

func TestAPI_Issue_InsufficientStock_StillSucceeds(t *testing.T) {
	// Short lines go out at zero price with no deduction.
	server := newTestServer(t)
	itemID := createPaperItem(t, server, 5)
	reqID := createPaperRequest(t, server) // asks for 10

	resp, slip := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/requests/%s/issue", server.URL, reqID),
		api.IssueBody{ActorID: "officer-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "0", slip["total_amount"])

	resp, item := doJSON(t, http.MethodGet, server.URL+"/api/items/"+itemID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(5), item["stock_on_hand"])
}

// =============================================================================
// INVENTORY ENDPOINTS
// =============================================================================

func TestAPI_CreateItem_DuplicateCode(t *testing.T) {
	server := newTestServer(t)
	createPaperItem(t, server, 50)

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/items", api.CreateItemBody{
		ItemCode: "PAPER-A4", Description: "More paper", UnitOfMeasure: "ream",
		ActorID: "officer-1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_AdjustStock_AndMovements(t *testing.T) {
	server := newTestServer(t)
	itemID := createPaperItem(t, server, 50)

	resp, mv := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/items/%s/adjust", server.URL, itemID),
		api.AdjustStockBody{NewQuantity: 80, ActorID: "officer-1", Notes: "delivery"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "IN", mv["type"])
	assert.Equal(t, float64(30), mv["quantity"])

	// Same quantity again records nothing
	resp, _ = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/items/%s/adjust", server.URL, itemID),
		api.AdjustStockBody{NewQuantity: 80, ActorID: "officer-1"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, movements := doJSONList(t, fmt.Sprintf("%s/api/items/%s/movements", server.URL, itemID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, movements, 2) // opening balance + one adjustment
}

func TestAPI_VerifyItem(t *testing.T) {
	server := newTestServer(t)
	itemID := createPaperItem(t, server, 50)

	resp, verdict := doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/items/%s/verify", server.URL, itemID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, verdict["consistent"])
	assert.Equal(t, float64(0), verdict["drift"])
}

func TestAPI_LowStock(t *testing.T) {
	server := newTestServer(t)
	createPaperItem(t, server, 10) // reorder level 20

	resp, list := doJSONList(t, server.URL+"/api/items/low-stock")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 1)
	assert.Equal(t, "PAPER-A4", list[0]["item_code"])
}

// =============================================================================
// TRACKING ENDPOINT
// =============================================================================

func TestAPI_Tracking_UnknownDocumentType(t *testing.T) {
	server := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, server.URL+"/api/tracking/INVOICE/doc-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Tracking_SupplyRequestTrail(t *testing.T) {
	server := newTestServer(t)
	id := createPaperRequest(t, server)

	resp, trail := doJSONList(t, server.URL+"/api/tracking/SUPPLY_REQUEST/"+id)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, trail, 1)
	assert.Equal(t, "Submitted", trail[0]["current_status"])
}
