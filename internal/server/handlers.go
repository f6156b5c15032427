package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/geoql-project/geoql/internal/config"
	"github.com/geoql-project/geoql/internal/eval"
	"github.com/geoql-project/geoql/pkg/output"
	"github.com/geoql-project/geoql/pkg/parser"
)

const sessionName = "geoql_session"

// querySignals is the shape of the frontend's data-signals payload for
// the query console's form.
type querySignals struct {
	SQL    string `json:"sql"`
	Format string `json:"format"`
}

func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	sess, _ := s.sessionStore.Get(r, sessionName)
	id, _ := sess.Values["id"].(string)
	if id == "" {
		id = uuid.NewString()
		sess.Values["id"] = id
		_ = sess.Save(r, w)
	}
	return id
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := homePage(id, "").Render(r.Context(), w); err != nil {
		s.logger.Error("render home page", "error", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleExecute runs one query's DSL text to completion and patches the
// #results element with its rendered output, all without a page reload.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var sig querySignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.PatchElementTempl(errorFragment("failed to read query signals: " + err.Error()))
		return
	}

	sse := datastar.NewSSE(w, r)

	src := strings.TrimSpace(sig.SQL)
	if src == "" {
		_ = sse.PatchElementTempl(errorFragment("query must not be empty"))
		return
	}

	root, err := parser.Parse(src, parser.WithGlobalBBox(s.cfg.AllowImplicitBBox, globalBBox(s.cfg)))
	if err != nil {
		_ = sse.PatchElementTempl(errorFragment("parse: " + err.Error()))
		return
	}

	rm := eval.NewResourceManager(eval.NewEnvironment(), s.cfg.Budget())
	ev := eval.New(r.Context(), s.backend, rm)
	ev.SetMacros(s.macros)
	if err := ev.Run(root); err != nil {
		_ = sse.PatchElementTempl(errorFragment("evaluate: " + err.Error()))
		return
	}

	format := sig.Format
	if format == "" {
		format = "xml"
	}

	var buf strings.Builder
	if err := ev.Render(&buf, output.Format(format)); err != nil {
		_ = sse.PatchElementTempl(errorFragment("render: " + err.Error()))
		return
	}

	if err := sse.PatchElementTempl(resultsFragment(buf.String())); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// handleUpdates is a long-lived SSE connection that tells open consoles
// when the backend's snapshot has been reloaded underneath them.
func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	updates := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := sse.ExecuteScript("window.location.reload()"); err != nil {
				return
			}
		}
	}
}

func globalBBox(cfg *config.Config) *parser.BBox {
	if cfg.GlobalBBox == "" {
		return nil
	}
	bb, err := config.ParseBBox(cfg.GlobalBBox)
	if err != nil {
		return nil
	}
	return &parser.BBox{S: bb.S, W: bb.W, N: bb.N, E: bb.E}
}
