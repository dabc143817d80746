package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bibkit/bibmatch/internal/api"
	"github.com/bibkit/bibmatch/internal/ingest"
	"github.com/bibkit/bibmatch/internal/matchsvc"
	"github.com/bibkit/bibmatch/internal/store"
	"github.com/bibkit/bibmatch/internal/testutil"
)

const candMARC = `{
	"leader": "00000cam a2200000 a 4500",
	"001": "C123",
	"008": "980115s1998    enk                 eng d",
	"020": [{"ind1": " ", "ind2": " ", "sub": [{"a": "0140275363"}]}],
	"100": [{"ind1": "0", "ind2": " ", "sub": [{"a": "Homer."}]}],
	"245": [{"ind1": "1", "ind2": "4", "sub": [{"a": "The Iliad"}]}]
}`

type env struct {
	db      *store.DB
	svc     *matchsvc.Service
	fsys    ingest.Provider
	dataDir string
	srv     *httptest.Server
}

func newEnv(t *testing.T, authEnabled bool, token string) *env {
	t.Helper()
	db := testutil.TestDB(t)
	dataDir, fsys := testutil.TestDataDir(t)
	svc := matchsvc.New(db, nil)
	router := api.NewRouter(svc, db, fsys, authEnabled, token, nil)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &env{db: db, svc: svc, fsys: fsys, dataDir: dataDir, srv: srv}
}

func (e *env) seed(t *testing.T, recID string, candidates ...string) {
	t.Helper()
	decision := store.DecisionNoMatch
	if len(candidates) > 0 {
		decision = store.DecisionPossible
	}
	err := e.db.UpsertRecord(store.RecordRow{
		Collection:      "inst",
		RecID:           recID,
		Title:           "The Iliad",
		Brief:           json.RawMessage(`{"short_title": "the iliad", "date_1": 1998, "language": "eng", "creators": ["Homer"], "isbns": ["0140275363"]}`),
		Full:            json.RawMessage(candMARC),
		PossibleMatches: candidates,
		Decision:        decision,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func (e *env) seedCandidate(t *testing.T, candID string) {
	t.Helper()
	if err := e.db.UpsertCandidate(store.CandidateRow{
		CandID: candID,
		MARC:   json.RawMessage(candMARC),
	}); err != nil {
		t.Fatal(err)
	}
}

func getJSON(t *testing.T, url string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s = %d, want %d: %s", url, resp.StatusCode, wantStatus, body)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
}

func postJSON(t *testing.T, url string, body any, wantStatus int, out any) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("POST %s = %d, want %d: %s", url, resp.StatusCode, wantStatus, b)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
}

func TestListCollectionsAndRecords(t *testing.T) {
	e := newEnv(t, false, "")
	e.seedCandidate(t, "C123")
	e.seed(t, "R1", "C123")
	e.seed(t, "R2")

	var cols struct {
		Collections []string `json:"collections"`
	}
	getJSON(t, e.srv.URL+"/collections", http.StatusOK, &cols)
	if len(cols.Collections) != 1 || cols.Collections[0] != "inst" {
		t.Errorf("collections = %v", cols.Collections)
	}

	var list api.RecordListResponse
	getJSON(t, e.srv.URL+"/collections/inst/records", http.StatusOK, &list)
	if list.Total != 2 || len(list.Records) != 2 {
		t.Errorf("records = %d/%d, want 2/2", len(list.Records), list.Total)
	}

	getJSON(t, e.srv.URL+"/collections/inst/records?filter=possible", http.StatusOK, &list)
	if list.Total != 1 || list.Records[0].RecID != "R1" {
		t.Errorf("possible filter = %+v", list)
	}
}

func TestGetRecordComparison(t *testing.T) {
	e := newEnv(t, false, "")
	e.seedCandidate(t, "C123")
	e.seed(t, "R1", "C123")

	var payload api.ComparePayload
	getJSON(t, e.srv.URL+"/collections/inst/records/R1", http.StatusOK, &payload)
	if payload.RecID != "R1" || len(payload.Candidates) != 1 {
		t.Fatalf("payload = %+v", payload)
	}
	if payload.Candidates[0].CandID != "C123" {
		t.Errorf("candidate = %s", payload.Candidates[0].CandID)
	}
	if payload.Candidates[0].Similarity <= 0 {
		t.Errorf("similarity = %v, want > 0", payload.Candidates[0].Similarity)
	}

	getJSON(t, e.srv.URL+"/collections/inst/records/R1?method=identifiers", http.StatusOK, &payload)
	getJSON(t, e.srv.URL+"/collections/inst/records/R1?method=bogus", http.StatusBadRequest, nil)
	getJSON(t, e.srv.URL+"/collections/inst/records/nope", http.StatusNotFound, nil)
}

func TestDecideEndpoint(t *testing.T) {
	e := newEnv(t, false, "")
	e.seedCandidate(t, "C123")
	e.seed(t, "R1", "C123")

	postJSON(t, e.srv.URL+"/collections/inst/records/R1/decision",
		api.DecisionRequest{MatchedRecord: "C123"}, http.StatusOK, nil)
	rec, err := e.db.GetRecord("inst", "R1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Decision != store.DecisionMatch || !rec.HumanValidated {
		t.Errorf("after decide: %+v", rec)
	}

	var body struct {
		Error string `json:"error"`
	}
	postJSON(t, e.srv.URL+"/collections/inst/records/R1/decision",
		api.DecisionRequest{MatchedRecord: "C999"}, http.StatusUnprocessableEntity, &body)
	if body.Error != "invalid_candidate" {
		t.Errorf("error = %q", body.Error)
	}

	postJSON(t, e.srv.URL+"/collections/inst/records/nope/decision",
		api.DecisionRequest{}, http.StatusNotFound, nil)
}

func TestReclassifyEndpoint(t *testing.T) {
	e := newEnv(t, false, "")
	e.seedCandidate(t, "C123")
	e.seed(t, "R1", "C123")
	e.seed(t, "R2", "C123")
	postJSON(t, e.srv.URL+"/collections/inst/records/R1/decision",
		api.DecisionRequest{MatchedRecord: "C123"}, http.StatusOK, nil)
	postJSON(t, e.srv.URL+"/collections/inst/records/R2/decision",
		api.DecisionRequest{MatchedRecord: "C123"}, http.StatusOK, nil)

	var resp api.ReclassifyResponse
	postJSON(t, e.srv.URL+"/collections/inst/reclassify", nil, http.StatusOK, &resp)
	if resp.Counts[store.DecisionDuplicate] != 2 {
		t.Errorf("counts = %v", resp.Counts)
	}
}

func TestSearchEndpoint(t *testing.T) {
	e := newEnv(t, false, "")
	e.seed(t, "R1")

	getJSON(t, e.srv.URL+"/collections/inst/search", http.StatusBadRequest, nil)

	var resp struct {
		Results []api.SearchResult `json:"results"`
	}
	getJSON(t, e.srv.URL+"/collections/inst/search?q=Iliad", http.StatusOK, &resp)
	if len(resp.Results) != 1 || resp.Results[0].RecID != "R1" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestTrainingEndpoint(t *testing.T) {
	e := newEnv(t, false, "")
	e.seedCandidate(t, "C123")
	e.seed(t, "R1", "C123")

	req := api.TrainingRequest{Collection: "inst", RecID: "R1", CandID: "C123", IsMatch: true}
	var resp struct {
		Created bool `json:"created"`
	}
	postJSON(t, e.srv.URL+"/training", req, http.StatusCreated, &resp)
	if !resp.Created {
		t.Error("first save not created")
	}
	postJSON(t, e.srv.URL+"/training", req, http.StatusOK, &resp)
	if resp.Created {
		t.Error("relabel reported created")
	}

	postJSON(t, e.srv.URL+"/training",
		api.TrainingRequest{Collection: "inst", RecID: "R1"}, http.StatusBadRequest, nil)
	postJSON(t, e.srv.URL+"/training",
		api.TrainingRequest{Collection: "inst", RecID: "R1", CandID: "C999"}, http.StatusUnprocessableEntity, nil)
}

func TestUploadEndpoint(t *testing.T) {
	e := newEnv(t, false, "")

	upload := func(filename string) *http.Response {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fmt.Fprint(fw, `{"rec_id": "R1"}`)
		mw.Close()

		resp, err := http.Post(e.srv.URL+"/collections/inst/import", mw.FormDataContentType(), &buf)
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	resp := upload("R1.json")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload = %d: %s", resp.StatusCode, b)
	}
	data, err := e.fsys.Read("inst/R1.json")
	if err != nil {
		t.Fatalf("uploaded file not written: %v", err)
	}
	if !strings.Contains(string(data), "R1") {
		t.Errorf("uploaded content = %q", data)
	}

	resp = upload("notes.txt")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unsupported extension = %d, want 400", resp.StatusCode)
	}
}

func TestAuthMiddleware(t *testing.T) {
	e := newEnv(t, true, "s3cret")

	resp, err := http.Get(e.srv.URL + "/collections")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, e.srv.URL+"/collections", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", resp.StatusCode)
	}

	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("valid token = %d, want 200", resp.StatusCode)
	}
}
