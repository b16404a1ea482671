// Package api expõe a loja via REST (gin). Roda atrás do pipeline de
// middlewares: não instala Recovery nem logger próprios, porque falhas, tempo
// e atividade já são tratados pelos estágios.
package api

import (
	"net/http"

	"store-backend/internal/store"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type Server struct {
	store    *store.Store
	validate *validatorv10.Validate
	log      logrus.FieldLogger
}

func NewServer(st *store.Store, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{store: st, validate: validatorv10.New(), log: log}
}

// Router monta as rotas.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.GET("/health", s.health)

	products := r.Group("/products")
	products.GET("", s.listProducts)
	products.GET("/:id", s.getProduct)
	products.POST("", s.requireStaff, s.createProduct)
	products.PUT("/:id", s.requireStaff, s.updateProduct)
	products.PATCH("/:id", s.requireStaff, s.patchProduct)
	products.DELETE("/:id", s.requireStaff, s.deleteProduct)

	carts := r.Group("/carts", s.requireUser)
	carts.GET("", s.listCarts)
	carts.POST("", s.createCart)
	carts.GET("/:id", s.getCart)
	carts.DELETE("/:id", s.deleteCart)
	carts.POST("/:id/items", s.addCartItem)
	carts.DELETE("/:id/items/:itemID", s.removeCartItem)

	orders := r.Group("/orders", s.requireUser)
	orders.GET("", s.listOrders)
	orders.POST("", s.createOrder)
	orders.GET("/:id", s.getOrder)
	orders.PUT("/:id", s.updateOrder)
	orders.PATCH("/:id", s.updateOrder)
	orders.DELETE("/:id", s.deleteOrder)

	payments := r.Group("/payments", s.requireUser)
	payments.GET("", s.listPayments)
	payments.POST("", s.createPayment)
	payments.GET("/:id", s.getPayment)

	return r
}

func (s *Server) health(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
