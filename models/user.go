package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Profile is the `user` object of GET /auth/profile.
type Profile struct {
	ID         string          `json:"_id,omitempty"`
	Name       string          `json:"name"`
	Email      string          `json:"email,omitempty"`
	Phone      string          `json:"phone,omitempty"`
	Role       string          `json:"role"`
	Balance    decimal.Decimal `json:"balance"`
	StoreLevel string          `json:"storeLevel,omitempty"`
	FeeRatio   decimal.Decimal `json:"feeRatio"`
}

// PaymentConfig holds the recharge details shown on the payment page.
type PaymentConfig struct {
	WechatQr     string `json:"wechatQr,omitempty"`
	WechatID     string `json:"wechatId,omitempty"`
	UsdtQr       string `json:"usdtQr,omitempty"`
	UsdtAddress  string `json:"usdtAddress,omitempty"`
	Description1 string `json:"description1,omitempty"`
	Description2 string `json:"description2,omitempty"`
}

// Order is one row of the admin order listing.
type Order struct {
	ID        string          `json:"_id"`
	Product   *Product        `json:"product,omitempty"`
	Buyer     *Party          `json:"buyer,omitempty"`
	Vendor    *Party          `json:"vendor,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"` // e.g. "pending", "completed"
	CreatedAt time.Time       `json:"createdAt"`
}

// Party is a buyer or vendor reference embedded in an order.
type Party struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Notice levels.
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// Notice is one transient user-visible notification (toast).
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// AdminUser is a user as managed from the admin dashboard.
type AdminUser struct {
	ID      string          `json:"_id"`
	Name    string          `json:"name"`
	Email   string          `json:"email,omitempty"`
	Role    string          `json:"role,omitempty"`
	Status  string          `json:"status,omitempty"`
	Balance decimal.Decimal `json:"balance"`
}
