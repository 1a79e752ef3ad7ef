package db

import "github.com/tajerapp/tajer/internal/models"

type Order = models.Order
type OrderItem = models.OrderItem
type OrderStatus = models.OrderStatus
type ShippingLabel = models.ShippingLabel
type SyncLog = models.SyncLog
type Product = models.Product
type AdCost = models.AdCost

const (
	StatusNouvelle    = models.StatusNouvelle
	StatusEnAttente   = models.StatusEnAttente
	StatusConfirmee   = models.StatusConfirmee
	StatusEnvoyee     = models.StatusEnvoyee
	StatusLivree      = models.StatusLivree
	StatusAnnulee     = models.StatusAnnulee
	StatusRetournee   = models.StatusRetournee
	StatusInjoignable = models.StatusInjoignable
)
