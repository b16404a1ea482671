package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"store-backend/internal/apperr"
	"store-backend/internal/store"
	"store-backend/middleware/pipeline"

	"github.com/gin-gonic/gin"
)

// Identify resolve "Authorization: Token <t>" na tabela de usuários.
// Token ausente ou desconhecido é anônimo; erro do banco vira falha.
func Identify(st *store.Store) pipeline.IdentityFunc {
	return func(r *http.Request) (pipeline.Identity, error) {
		scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
		if !ok || !strings.EqualFold(scheme, "Token") || strings.TrimSpace(token) == "" {
			return pipeline.Identity{}, nil
		}
		u, err := st.UserByToken(r.Context(), strings.TrimSpace(token))
		if errors.Is(err, apperr.ErrNotFound) {
			return pipeline.Identity{}, nil
		}
		if err != nil {
			return pipeline.Identity{}, err
		}
		return pipeline.Identity{UserID: strconv.FormatInt(u.ID, 10), Staff: u.Staff}, nil
	}
}

const userIDKey = "user_id"

func (s *Server) requireUser(c *gin.Context) {
	id := pipeline.IdentityFrom(c.Request.Context())
	if !id.Authenticated() {
		s.fail(c, apperr.ErrUnauthenticated)
		c.Abort()
		return
	}
	uid, err := strconv.ParseInt(id.UserID, 10, 64)
	if err != nil {
		s.fail(c, err)
		c.Abort()
		return
	}
	c.Set(userIDKey, uid)
}

func (s *Server) requireStaff(c *gin.Context) {
	id := pipeline.IdentityFrom(c.Request.Context())
	switch {
	case !id.Authenticated():
		s.fail(c, apperr.ErrUnauthenticated)
		c.Abort()
	case !id.Staff:
		s.fail(c, apperr.ErrForbidden)
		c.Abort()
	}
}

func userID(c *gin.Context) int64 { return c.GetInt64(userIDKey) }
