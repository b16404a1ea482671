package api

import (
	"errors"
	"net/http"
	"strconv"

	"store-backend/internal/apperr"
	"store-backend/middleware/pipeline"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// fail escreve a resposta de erro. Erros conhecidos viram {"detail": ...} com o
// status do apperr; os demais são entregues à fronteira do pipeline.
func (s *Server) fail(c *gin.Context, err error) {
	if apperr.Expected(err) {
		c.JSON(apperr.HTTPStatus(err), gin.H{"detail": detail(err)})
		return
	}
	if pipeline.RaiseFault(c.Request.Context(), err) {
		return
	}
	// fora do pipeline (testes do router sozinho)
	s.log.WithError(err).Error("unhandled error outside pipeline")
	c.Data(http.StatusInternalServerError, "application/json", []byte(pipeline.FaultBody))
}

// detail devolve a mensagem do sentinela, sem o contexto de wrap.
func detail(err error) string {
	for _, sentinel := range []error{
		apperr.ErrCartEmpty,
		apperr.ErrPaymentExists,
		apperr.ErrInsufficientStock,
		apperr.ErrDuplicateOrderItem,
		apperr.ErrInvalidStatus,
		apperr.ErrProductInUse,
		apperr.ErrUsernameTaken,
		apperr.ErrUnauthenticated,
		apperr.ErrForbidden,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return "Not found."
	}
	return err.Error()
}

// bind lê o JSON e valida. Em erro já escreveu 400.
func (s *Server) bind(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body", "msg": err.Error()})
		return false
	}
	if err := s.validate.Struct(out); err != nil {
		fields := map[string]string{}
		var ve validatorv10.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				fields[fe.Field()] = fe.Tag()
			}
		} else {
			fields["error"] = err.Error()
		}
		c.JSON(http.StatusBadRequest, gin.H{"detail": "validation failed", "fields": fields})
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return 0, false
	}
	return id, true
}
