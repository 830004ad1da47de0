package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coredb "github.com/triagekit/filtergate/internal/core/db"
	"github.com/triagekit/filtergate/internal/engine"
	"github.com/triagekit/filtergate/internal/filter"
	"github.com/triagekit/filtergate/internal/notify"
	"github.com/triagekit/filtergate/internal/store"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "filtergate.db")
	conn, err := coredb.Open("sqlite://" + dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, coredb.MigrateUp(conn))
	queries, err := coredb.LoadQueries(conn)
	require.NoError(t, err)

	log := zerolog.Nop()
	reg := filter.NewRegistry()
	st := store.New(queries, reg, log)
	eng := engine.New(reg, st, filter.Env{Notifier: notify.NewLogNotifier(log)}, log)

	service, err := NewService(st, eng, log)
	require.NoError(t, err)

	e := echo.New()
	service.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("X-Actor", "admin")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Body.String(), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func createGroup(t *testing.T, e *echo.Echo, name string) string {
	t.Helper()
	rec, body := doJSON(t, e, http.MethodPost, "/v1/groups", fmt.Sprintf(`{"name":%q}`, name))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func createRule(t *testing.T, e *echo.Echo, groupID, payload string) string {
	t.Helper()
	rec, body := doJSON(t, e, http.MethodPost, "/v1/groups/"+groupID+"/rules", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestGroupLifecycle(t *testing.T) {
	e := newTestServer(t)

	id := createGroup(t, e, "spam")

	rec, body := doJSON(t, e, http.MethodGet, "/v1/groups/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "spam", body["name"])
	assert.Equal(t, float64(1), body["sort_order"])

	rec, _ = doJSON(t, e, http.MethodPatch, "/v1/groups/"+id, `{"name":"junk","disabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, body = doJSON(t, e, http.MethodGet, "/v1/groups/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "junk", body["name"])
	assert.Equal(t, true, body["disabled"])

	rec, _ = doJSON(t, e, http.MethodGet, "/v1/groups", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec, _ = doJSON(t, e, http.MethodDelete, "/v1/groups/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, e, http.MethodGet, "/v1/groups/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGroupValidationAndMove(t *testing.T) {
	e := newTestServer(t)

	rec, _ := doJSON(t, e, http.MethodPost, "/v1/groups", `{"disabled":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing name must be rejected")

	a := createGroup(t, e, "a")
	b := createGroup(t, e, "b")

	rec, _ = doJSON(t, e, http.MethodPost, "/v1/groups/"+b+"/move", `{"offset":-1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = doJSON(t, e, http.MethodGet, "/v1/groups", "")
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, b, list[0]["id"])
	assert.Equal(t, a, list[1]["id"])

	// Moving past the boundary conflicts without changing anything.
	rec, _ = doJSON(t, e, http.MethodPost, "/v1/groups/"+b+"/move", `{"offset":-1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRuleLifecycle(t *testing.T) {
	e := newTestServer(t)
	gid := createGroup(t, e, "escalation")

	rid := createRule(t, e, gid, `{
		"name": "fire",
		"trigger": "create",
		"requirements": [{"kind": "SubjectContains", "values": ["fire"]}],
		"actions": [{"kind": "PrioritySet", "value": "99"}]
	}`)

	rec, body := doJSON(t, e, http.MethodGet, "/v1/rules/"+rid, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fire", body["name"])
	assert.Equal(t, gid, body["group_id"])
	assert.Equal(t, "create", body["trigger"])

	rec, _ = doJSON(t, e, http.MethodPatch, "/v1/rules/"+rid, `{
		"name": "fire-v2",
		"requirements": [{"kind": "SubjectContains", "values": ["fire", "smoke"]}],
		"actions": [{"kind": "PrioritySet", "value": "80"}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, body = doJSON(t, e, http.MethodGet, "/v1/rules/"+rid, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fire-v2", body["name"])

	rec, _ = doJSON(t, e, http.MethodDelete, "/v1/rules/"+rid, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, e, http.MethodGet, "/v1/rules/"+rid, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRuleValidation(t *testing.T) {
	e := newTestServer(t)
	gid := createGroup(t, e, "g")

	rec, _ := doJSON(t, e, http.MethodPost, "/v1/groups/"+gid+"/rules", `{
		"name": "bad",
		"requirements": [{"kind": "NoSuchKind"}]
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown condition kind must be rejected")

	rec, _ = doJSON(t, e, http.MethodPost, "/v1/groups/"+gid+"/rules", `{
		"name": "bad",
		"trigger": "merge"
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown trigger must be rejected")

	rec, _ = doJSON(t, e, http.MethodPost, "/v1/groups/does-not-exist/rules", `{"name":"r"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvaluateEndpoint(t *testing.T) {
	e := newTestServer(t)
	gid := createGroup(t, e, "escalation")

	createRule(t, e, gid, `{
		"name": "gate",
		"is_group_condition": true,
		"requirements": [{"kind": "AlwaysMatch"}]
	}`)
	rid := createRule(t, e, gid, `{
		"name": "fire",
		"requirements": [{"kind": "SubjectContains", "values": ["fire"]}],
		"actions": [
			{"kind": "PrioritySet", "value": "99"},
			{"kind": "QueueSet", "value": "Escalations"}
		]
	}`)

	rec, body := doJSON(t, e, http.MethodPost, "/v1/evaluate", `{
		"trigger": "create",
		"ticket": {
			"ticket_id": "T-1",
			"subject": "Printer on fire",
			"queue": "General",
			"priority": 10
		}
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := body["result"].(map[string]any)
	assert.Equal(t, true, result["matched"])

	ticket := body["ticket"].(map[string]any)
	assert.Equal(t, float64(99), ticket["priority"])
	assert.Equal(t, "Escalations", ticket["queue"])

	// The match landed in the history, queryable both ways.
	rec, _ = doJSON(t, e, http.MethodGet, "/v1/rules/"+rid+"/matches", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var matches []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "T-1", matches[0]["ticket_id"])

	rec, _ = doJSON(t, e, http.MethodGet, "/v1/tickets/T-1/matches", "")
	require.Equal(t, http.StatusOK, rec.Code)
	matches = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matches))
	assert.Len(t, matches, 1)
}

func TestEvaluateEndpoint_Validation(t *testing.T) {
	e := newTestServer(t)

	rec, _ := doJSON(t, e, http.MethodPost, "/v1/evaluate", `{
		"trigger": "merge",
		"ticket": {"ticket_id": "T-1"}
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, e, http.MethodPost, "/v1/evaluate", `{
		"trigger": "create",
		"ticket": {"subject": "no id"}
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewRule(t *testing.T) {
	e := newTestServer(t)
	gid := createGroup(t, e, "g")
	rid := createRule(t, e, gid, `{
		"name": "r",
		"conflicts": [{"kind": "StatusIs", "values": ["resolved"]}],
		"requirements": [{"kind": "SubjectContains", "values": ["fire", "smoke"]}],
		"actions": [{"kind": "PrioritySet", "value": "99"}]
	}`)

	rec, body := doJSON(t, e, http.MethodPost, "/v1/rules/"+rid+"/preview", `{
		"trigger": "create",
		"ticket": {
			"ticket_id": "T-1",
			"subject": "Printer on fire",
			"status": "new",
			"priority": 10
		}
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["matched"])

	checks := body["checks"].([]any)
	require.Len(t, checks, 2, "one check per condition, conflicts included")

	// Preview is a dry run: the rule must not appear in match history.
	rec, _ = doJSON(t, e, http.MethodGet, "/v1/rules/"+rid+"/matches", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var matches []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matches))
	assert.Empty(t, matches)
}

func TestCatalogs(t *testing.T) {
	e := newTestServer(t)

	rec, _ := doJSON(t, e, http.MethodGet, "/v1/catalog/conditions?locale=en", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var conds []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conds))
	assert.Len(t, conds, 18)

	rec, _ = doJSON(t, e, http.MethodGet, "/v1/catalog/actions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var acts []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acts))
	assert.Len(t, acts, 22)
}

func TestAuditEndpoints(t *testing.T) {
	e := newTestServer(t)
	gid := createGroup(t, e, "g")

	rec, _ := doJSON(t, e, http.MethodPatch, "/v1/groups/"+gid, `{"name":"renamed"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, e, http.MethodGet, "/v1/groups/"+gid+"/audits", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var audits []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &audits))
	require.Len(t, audits, 2)
	assert.Equal(t, "admin", audits[0]["actor"], "actor taken from the X-Actor header")

	rid := createRule(t, e, gid, `{"name":"r"}`)
	rec, _ = doJSON(t, e, http.MethodGet, "/v1/rules/"+rid+"/audits", "")
	require.Equal(t, http.StatusOK, rec.Code)
	audits = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &audits))
	assert.Len(t, audits, 1)
}
