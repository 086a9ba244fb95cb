package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/comment-platform/internal/platform/api"
	"github.com/example/comment-platform/internal/platform/auth"
	"github.com/example/comment-platform/internal/platform/httpserver"
	"github.com/example/comment-platform/internal/platform/ratelimit"
	"github.com/example/comment-platform/services/threads/internal/comment"
	"github.com/example/comment-platform/services/threads/internal/store"
	"github.com/example/comment-platform/services/threads/internal/thread"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

type listResponse struct {
	Comments   []*comment.Comment `json:"comments"`
	TotalCount *int               `json:"total_count,omitempty"`
}

// Mount registers the comment routes on r.
func Mount(r chi.Router, e *thread.Engine, verifier auth.JWTVerifier, limiter *ratelimit.Limiter, log *zap.Logger) {
	r.With(limiter.Middleware).Get("/v1/pages/{page_id}/comments", ListComments(e))
	r.With(auth.RequireUser(verifier), auth.RequireAdmin).
		Delete("/v1/pages/{page_id}/comments", PurgePageComments(e, log))
}

// ListComments handles GET /v1/pages/{page_id}/comments
func ListComments(e *thread.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		pageID, ok := pageIDParam(w, r)
		if !ok {
			return
		}
		q, details := buildQuery(e, r)
		if details != nil {
			api.BadRequest(w, "INVALID_QUERY", "invalid query parameters", rid, details)
			return
		}
		q.PageID = pageID

		if err := q.Fetch(r.Context()); err != nil {
			api.Internal(w, rid)
			return
		}

		resp := listResponse{Comments: q.Comments}
		if q.ThreadMode {
			total := q.TotalCount
			resp.TotalCount = &total
		}
		api.WriteJSON(w, http.StatusOK, resp)
	}
}

// PurgePageComments handles DELETE /v1/pages/{page_id}/comments
func PurgePageComments(e *thread.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		pageID, ok := pageIDParam(w, r)
		if !ok {
			return
		}
		opts := thread.EraseOptions{Silent: true}
		if v, err := strconv.ParseBool(r.URL.Query().Get("notify")); err == nil && v {
			opts.Silent = false
		}
		switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("policy"))) {
		case "", "abort":
		case "continue":
			opts.Policy = thread.ContinueOnError
		default:
			api.BadRequest(w, "INVALID_POLICY", "policy must be abort or continue", rid, nil)
			return
		}

		actor, _ := auth.PrincipalFromContext(r.Context())
		rep, err := e.PurgePage(r.Context(), pageID, opts)
		if err != nil {
			log.Error("purge page comments failed",
				zap.Int64("page_id", pageID),
				zap.String("actor", actor.Subject),
				zap.Int("deleted", rep.Deleted),
				zap.Int("failed", rep.Failed),
				zap.String("request_id", rid),
				zap.Error(err))
			api.Internal(w, rid)
			return
		}
		log.Info("page comments purged by moderator",
			zap.Int64("page_id", pageID),
			zap.String("actor", actor.Subject),
			zap.Int("deleted", rep.Deleted),
			zap.Int("skipped", rep.Skipped),
			zap.String("request_id", rid))
		api.WriteJSON(w, http.StatusOK, rep)
	}
}

func pageIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "page_id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		api.BadRequest(w, "INVALID_PAGE_ID", "page_id must be a positive integer",
			httpserver.RequestIDFromContext(r.Context()), nil)
		return 0, false
	}
	return id, true
}

// buildQuery maps query string options onto a new Query. It returns the
// offending parameters when any value is invalid.
func buildQuery(e *thread.Engine, r *http.Request) (*thread.Query, map[string]any) {
	v := r.URL.Query()
	q := e.NewQuery()
	q.Limit = defaultLimit
	details := map[string]any{}

	q.Author = strings.TrimSpace(v.Get("author"))
	q.Keyword = v.Get("keyword")

	switch strings.ToLower(strings.TrimSpace(v.Get("dir"))) {
	case "", "older":
		q.Dir = store.Older
	case "newer":
		q.Dir = store.Newer
	default:
		details["dir"] = v.Get("dir")
	}

	if s := v.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			details["offset"] = s
		} else {
			q.Offset = n
		}
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxLimit {
			details["limit"] = s
		} else {
			q.Limit = n
		}
	}
	if s := v.Get("thread"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			details["thread"] = s
		} else {
			q.ThreadMode = b
		}
	}
	if f, ok := comment.ParseStatusFilter(v.Get("filter")); ok {
		q.Filter = f
	} else {
		details["filter"] = v.Get("filter")
	}
	switch strings.ToLower(strings.TrimSpace(v.Get("child_filter"))) {
	case "", "collapse":
		q.ChildFilter = thread.ChildFilterCollapse
	case "inherit":
		q.ChildFilter = thread.ChildFilterInherit
	default:
		details["child_filter"] = v.Get("child_filter")
	}

	if len(details) > 0 {
		return nil, details
	}
	return q, nil
}
