package dto

import "time"

type POIRecord struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	Location     string `json:"location"`
	Type         string `json:"type"`
	BusinessArea string `json:"businessArea"`
}

type Region struct {
	Adcode    string   `json:"adcode"`
	Name      string   `json:"name"`
	Center    string   `json:"center"`
	Level     string   `json:"level"`
	Districts []Region `json:"districts,omitempty"`
}

type SendCodeRequest struct {
	Phone string `json:"phone"`
}

type VerifyCodeRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type LoginResponse struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
	Phone  string `json:"phone"`
}

type ProfileResponse struct {
	UserID           string     `json:"userId"`
	Phone            string     `json:"phone"`
	MembershipType   string     `json:"membershipType"`
	MembershipExpiry *time.Time `json:"membershipExpiry,omitempty"`
	DailyExportCount int        `json:"dailyExportCount"`
}

type ExportRequest struct {
	Data []POIRecord `json:"data"`
}

type CreateOrderRequest struct {
	MembershipType string `json:"membershipType"`
}

type CreateOrderResponse struct {
	CodeURL    string `json:"codeUrl"`
	OutTradeNo string `json:"orderId"`
}

type OrderStatusResponse struct {
	OutTradeNo     string     `json:"outTradeNo"`
	Status         string     `json:"status"`
	MembershipType string     `json:"membershipType"`
	Amount         int64      `json:"amount"`
	CreatedAt      time.Time  `json:"createdAt"`
	PaidAt         *time.Time `json:"paidAt,omitempty"`
}
