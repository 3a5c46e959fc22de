package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/baodaydungsone/chai/internal/config"
	"github.com/baodaydungsone/chai/internal/credential"
	"github.com/baodaydungsone/chai/internal/engine"
	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/baodaydungsone/chai/internal/llm/llmtest"
	"github.com/baodaydungsone/chai/internal/store"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, fake *llmtest.Fake) (*Server, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "chai.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{ProviderMode: "geminiCustom", CustomAPIKeys: []string{"k1", "k2"}, Timezone: "UTC"}
	require.NoError(t, cfg.Resolve())
	eng, err := engine.New(cfg, st, fake.Factory, zerolog.Nop())
	require.NoError(t, err)
	return NewServer(eng, zerolog.Nop()), st
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func seedPersona(t *testing.T, st *store.SQLiteStore) *llm.Persona {
	t.Helper()
	p, err := st.PutPersona(context.Background(), &llm.Persona{Name: "Lan", Personality: "cheerful"})
	require.NoError(t, err)
	return p
}

func TestSendMessage(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("Hello there!")}
	s, st := newTestServer(t, fake)
	p := seedPersona(t, st)

	rec := do(t, s, http.MethodPost, "/api/personas/"+p.ID+"/messages", `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var turn struct {
		Reply llm.Message `json:"Reply"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &turn))
	assert.Equal(t, "Hello there!", turn.Reply.Content)

	rec = do(t, s, http.MethodGet, "/api/personas/"+p.ID+"/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []llm.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	assert.Len(t, msgs, 2)
}

func TestSendMessageErrorStatus(t *testing.T) {
	cases := map[string]struct {
		reply  func(string, llm.Request) (*llm.Response, error)
		body   string
		status int
	}{
		"empty message": {
			reply:  llmtest.Reply("unused"),
			body:   `{"message":"  "}`,
			status: http.StatusBadRequest,
		},
		"bad image": {
			reply:  llmtest.Reply("unused"),
			body:   `{"message":"look","image":"data:image/png;base64,!!"}`,
			status: http.StatusBadRequest,
		},
		"all keys rejected": {
			reply: func(string, llm.Request) (*llm.Response, error) {
				return nil, &llm.ProviderError{Kind: llm.KindCredential, Err: errors.New("API key not valid")}
			},
			body:   `{"message":"hi"}`,
			status: http.StatusUnauthorized,
		},
		"transient": {
			reply: func(string, llm.Request) (*llm.Response, error) {
				return nil, &llm.ProviderError{Kind: llm.KindTransient, Err: errors.New("deadline exceeded")}
			},
			body:   `{"message":"hi"}`,
			status: http.StatusBadGateway,
		},
		"no keys": {
			reply:  llmtest.Reply("unused"),
			body:   `{"message":"hi","apiKeys":["  "]}`,
			status: http.StatusInternalServerError,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s, st := newTestServer(t, &llmtest.Fake{GenerateFunc: tc.reply})
			p := seedPersona(t, st)

			rec := do(t, s, http.MethodPost, "/api/personas/"+p.ID+"/messages", tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestUnknownPersonaIsNotFound(t *testing.T) {
	s, _ := newTestServer(t, &llmtest.Fake{})

	rec := do(t, s, http.MethodPost, "/api/personas/missing/messages", `{"message":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPersonaCRUD(t *testing.T) {
	s, _ := newTestServer(t, &llmtest.Fake{})

	rec := do(t, s, http.MethodPost, "/api/personas", `{"name":"Mai","personality":"shy florist"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p llm.Persona
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.NotEmpty(t, p.ID)

	rec = do(t, s, http.MethodPost, "/api/personas", `{"name":"Mai"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/personas/"+p.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/personas/"+p.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGroupMessageProtocolError(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: llmtest.Reply(`{"characterId":"x","response":"not an array"}`)}
	s, st := newTestServer(t, fake)
	p := seedPersona(t, st)
	g, err := st.PutGroup(context.Background(), &llm.Group{Name: "Friends", MemberIDs: []string{p.ID}})
	require.NoError(t, err)

	rec := do(t, s, http.MethodPost, "/api/groups/"+g.ID+"/messages", `{"message":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, []string{"k1"}, fake.Keys())
}

func TestSettingsOverrides(t *testing.T) {
	s, _ := newTestServer(t, &llmtest.Fake{})

	st := s.settings(&MessageRequest{
		APIKeys:  []string{"mine"},
		Features: &llm.Features{WebSearch: true},
	})
	assert.Equal(t, credential.Custom("mine"), st.Pool)
	assert.True(t, st.Features.WebSearch)
	assert.Equal(t, credential.Custom("k1", "k2"), s.settings(nil).Pool)
}

func TestValidateKey(t *testing.T) {
	fake := &llmtest.Fake{FactoryErr: map[string]error{"bad": errors.New("API key not valid")}}
	s, _ := newTestServer(t, fake)

	rec := do(t, s, http.MethodPost, "/api/keys/validate", `{"key":"good"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":true}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/keys/validate", `{"key":"bad"}`)
	assert.JSONEq(t, `{"valid":false}`, rec.Body.String())
}
