package server

import (
	"errors"
	"net/http"

	"github.com/baodaydungsone/chai/internal/character"
	"github.com/baodaydungsone/chai/internal/conversation"
	"github.com/baodaydungsone/chai/internal/credential"
	"github.com/baodaydungsone/chai/internal/engine"
	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/baodaydungsone/chai/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// MessageRequest is a user turn. Features, Policy, User and APIKeys override
// the process defaults for this call only.
type MessageRequest struct {
	Message  string             `json:"message"`
	Image    string             `json:"image,omitempty"`
	MIMEType string             `json:"mimeType,omitempty"`
	Features *llm.Features      `json:"features,omitempty"`
	Policy   *llm.ContentPolicy `json:"policy,omitempty"`
	User     *llm.UserProfile   `json:"user,omitempty"`
	APIKeys  []string           `json:"apiKeys,omitempty"`
}

type CharacterBuilderRequest struct {
	Theme string `json:"theme"`
	Idea  string `json:"idea"`
}

type ExtractRequest struct {
	Text string `json:"text"`
}

type SuggestFieldRequest struct {
	Field string      `json:"field"`
	Draft llm.Persona `json:"draft"`
}

type ValidateKeyRequest struct {
	Key string `json:"key"`
}

type Server struct {
	echo   *echo.Echo
	engine *engine.Engine
	log    zerolog.Logger
}

func NewServer(eng *engine.Engine, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover(), middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Dur("latency", v.Latency).Msg("request")
			return nil
		},
	}))

	s := &Server{echo: e, engine: eng, log: log.With().Str("component", "server").Logger()}
	s.setupRoutes()
	return s
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/personas", s.listPersonas)
	api.POST("/personas", s.putPersona)
	api.GET("/personas/:id", s.getPersona)
	api.DELETE("/personas/:id", s.deletePersona)
	api.GET("/personas/:id/messages", s.getHistory)
	api.POST("/personas/:id/messages", s.sendMessage)
	api.POST("/personas/:id/suggest-reply", s.suggestReply)
	api.POST("/personas/:id/nudge", s.nudge)

	api.GET("/groups", s.listGroups)
	api.POST("/groups", s.putGroup)
	api.GET("/groups/:id/messages", s.getGroupHistory)
	api.POST("/groups/:id/messages", s.sendGroupMessage)

	api.POST("/character/build", s.buildCharacter)
	api.POST("/character/extract", s.extractCharacter)
	api.POST("/character/suggest", s.suggestField)

	api.POST("/keys/validate", s.validateKey)
}

// httpError maps engine error categories onto status codes.
func httpError(err error) error {
	var status int
	switch {
	case errors.Is(err, llm.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, llm.ErrExhausted), errors.Is(err, llm.ErrCredential):
		status = http.StatusUnauthorized
	case errors.Is(err, llm.ErrProtocol), errors.Is(err, llm.ErrTransient):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}
	return echo.NewHTTPError(status, err.Error()).SetInternal(err)
}

// settings applies per-request overrides on top of the engine defaults.
func (s *Server) settings(req *MessageRequest) conversation.Settings {
	st := s.engine.Settings()
	if req == nil {
		return st
	}
	if req.Features != nil {
		st.Features = *req.Features
	}
	if req.Policy != nil {
		st.Policy = *req.Policy
	}
	if req.User != nil {
		st.User = *req.User
	}
	if len(req.APIKeys) > 0 {
		st.Pool = credential.Custom(req.APIKeys...)
	}
	return st
}

func (s *Server) listPersonas(c echo.Context) error {
	personas, err := s.engine.Store().ListPersonas(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, personas)
}

func (s *Server) putPersona(c echo.Context) error {
	req := new(llm.Persona)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := s.engine.Store().PutPersona(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	s.engine.Forget(p.ID)
	return c.JSON(http.StatusOK, p)
}

func (s *Server) getPersona(c echo.Context) error {
	p, err := s.engine.Store().GetPersona(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) deletePersona(c echo.Context) error {
	id := c.Param("id")
	if err := s.engine.Store().DeletePersona(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	s.engine.Forget(id)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) getHistory(c echo.Context) error {
	msgs, err := s.engine.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, msgs)
}

func bindMessage(c echo.Context) (*MessageRequest, *llm.Image, error) {
	req := new(MessageRequest)
	if err := c.Bind(req); err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Image == "" {
		return req, nil, nil
	}
	img, err := llm.ParseDataURL(req.Image, req.MIMEType)
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return req, img, nil
}

func (s *Server) sendMessage(c echo.Context) error {
	req, img, err := bindMessage(c)
	if err != nil {
		return err
	}
	turn, err := s.engine.Send(c.Request().Context(), s.settings(req), c.Param("id"), req.Message, img)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, turn)
}

func (s *Server) suggestReply(c echo.Context) error {
	req, _, err := bindMessage(c)
	if err != nil {
		return err
	}
	text, err := s.engine.SuggestReply(c.Request().Context(), s.settings(req), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"suggestion": text})
}

func (s *Server) nudge(c echo.Context) error {
	req, _, err := bindMessage(c)
	if err != nil {
		return err
	}
	msg, err := s.engine.Nudge(c.Request().Context(), s.settings(req), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, msg)
}

func (s *Server) listGroups(c echo.Context) error {
	groups, err := s.engine.Store().ListGroups(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, groups)
}

func (s *Server) putGroup(c echo.Context) error {
	req := new(llm.Group)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	g, err := s.engine.Store().PutGroup(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, g)
}

func (s *Server) getGroupHistory(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := s.engine.Store().GetGroup(ctx, c.Param("id")); err != nil {
		return httpError(err)
	}
	msgs, err := s.engine.Store().RecentMessages(ctx, c.Param("id"), 0)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, msgs)
}

func (s *Server) sendGroupMessage(c echo.Context) error {
	req, img, err := bindMessage(c)
	if err != nil {
		return err
	}
	msgs, err := s.engine.SendGroup(c.Request().Context(), s.settings(req), c.Param("id"), req.Message, img)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, msgs)
}

func (s *Server) buildCharacter(c echo.Context) error {
	req := new(CharacterBuilderRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := s.engine.Assistant().BuildConcept(c.Request().Context(), s.engine.Settings().Pool, req.Theme, req.Idea)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) extractCharacter(c echo.Context) error {
	req := new(ExtractRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}
	p, err := s.engine.Assistant().ExtractFromText(c.Request().Context(), s.engine.Settings().Pool, req.Text)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) suggestField(c echo.Context) error {
	req := new(SuggestFieldRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	text, err := s.engine.Assistant().SuggestField(c.Request().Context(), s.engine.Settings().Pool, character.Field(req.Field), req.Draft)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"suggestion": text})
}

func (s *Server) validateKey(c echo.Context) error {
	req := new(ValidateKeyRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]bool{"valid": s.engine.ValidateKey(c.Request().Context(), req.Key)})
}
