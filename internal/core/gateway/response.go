package gateway

import (
	"encoding/json"
	"net/url"
)

// Response is the typed view of a gateway status payload. It arrives through
// three paths with the same field set: the browser-return POST, the
// server-to-server webhook, and the requery reply. Every field stays a string
// in wire format until validated.
type Response struct {
	MerchantCode string `json:"MerchantCode" form:"MerchantCode"`
	PaymentID    string `json:"PaymentId" form:"PaymentId"`
	RefNo        string `json:"RefNo" form:"RefNo"`
	Amount       string `json:"Amount" form:"Amount"` // minor units
	Currency     string `json:"Currency" form:"Currency"`
	Remark       string `json:"Remark" form:"Remark"`
	TransID      string `json:"TransId" form:"TransId"`
	AuthCode     string `json:"AuthCode" form:"AuthCode"`
	Status       string `json:"Status" form:"Status"`
	ErrDesc      string `json:"ErrDesc" form:"ErrDesc"`
	Signature    string `json:"Signature" form:"Signature"`

	// Optional payment-method fields: the gateway fills CCName for card
	// payments and BankName for bank transfers.
	CCName   string `json:"CCName" form:"CCName"`
	BankName string `json:"S_bankname" form:"S_bankname"`
}

// ParseResponse decodes a gateway payload, trying JSON first and falling back
// to URL-encoded form data. The gateway's REST endpoints answer JSON, its
// redirect and legacy paths post forms.
func ParseResponse(body []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err == nil {
		return &resp, nil
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}
	return &Response{
		MerchantCode: values.Get("MerchantCode"),
		PaymentID:    values.Get("PaymentId"),
		RefNo:        values.Get("RefNo"),
		Amount:       values.Get("Amount"),
		Currency:     values.Get("Currency"),
		Remark:       values.Get("Remark"),
		TransID:      values.Get("TransId"),
		AuthCode:     values.Get("AuthCode"),
		Status:       values.Get("Status"),
		ErrDesc:      values.Get("ErrDesc"),
		Signature:    values.Get("Signature"),
		CCName:       values.Get("CCName"),
		BankName:     values.Get("S_bankname"),
	}, nil
}
