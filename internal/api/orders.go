package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type orderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed shipped completed cancelled"`
}

type paymentRequest struct {
	Order  int64   `json:"order" validate:"required,gt=0"`
	Amount float64 `json:"amount" validate:"gte=0"`
}

func (s *Server) listOrders(c *gin.Context) {
	out, err := s.store.ListOrders(c.Request.Context(), userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := s.store.GetOrder(c.Request.Context(), userID(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// createOrder fecha o carrinho do usuário num pedido.
func (s *Server) createOrder(c *gin.Context) {
	o, err := s.store.PlaceOrder(c.Request.Context(), userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Location", fmt.Sprintf("/orders/%d", o.ID))
	c.JSON(http.StatusCreated, o)
}

// updateOrder atende PUT e PATCH; o único campo editável é o status.
func (s *Server) updateOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req orderStatusRequest
	if !s.bind(c, &req) {
		return
	}
	o, err := s.store.SetOrderStatus(c.Request.Context(), userID(c), id, req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) deleteOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteOrder(c.Request.Context(), userID(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listPayments(c *gin.Context) {
	out, err := s.store.ListPayments(c.Request.Context(), userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createPayment(c *gin.Context) {
	var req paymentRequest
	if !s.bind(c, &req) {
		return
	}
	p, err := s.store.RecordPayment(c.Request.Context(), userID(c), req.Order, req.Amount)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) getPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := s.store.GetPayment(c.Request.Context(), userID(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
