package api

import (
	"net/http"

	"github.com/celldb/celldb/pkg/errs"
	"github.com/celldb/celldb/pkg/httputil"
)

// createSession mints a bearer token for an existing user. The endpoint
// does not prove the caller is that user; deployments are expected to put
// their own authentication in front of it.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		httputil.WriteError(w, errs.Validation("session issuance is not configured"))
		return
	}

	var body map[string]interface{}
	if err := httputil.ParseJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	userID := stringField(body, "user_id")
	if userID == "" {
		httputil.WriteError(w, errs.Validation("user_id is required"))
		return
	}

	exists, err := s.deps.Users.Exists(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !exists {
		httputil.WriteError(w, errs.NotFound("user %q not found", userID))
		return
	}

	token, err := s.deps.Sessions.Issue(userID)
	if err != nil {
		httputil.WriteError(w, errs.Upstream(err, "issue session"))
		return
	}
	httputil.WriteCreated(w, map[string]string{"token": token, "user_id": userID})
}
