package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bagbot/internal/model"
)

const missingOrderIDMessage = `Missing Order ID. Please provide your order number like "#5501".`

var orderIDPattern = regexp.MustCompile(`#?(\d{4,10})`)

// OrderResult holds either the stored record or a message for the user.
type OrderResult struct {
	OrderID string
	Record  *model.OrderRecord
	Message string
}

// Payload is the value handed to the reply prompt.
func (r OrderResult) Payload() any {
	if r.Record != nil {
		return r.Record
	}
	return r.Message
}

type OrderService struct {
	orders map[int]model.OrderRecord
}

func NewOrderService() *OrderService {
	return &OrderService{orders: map[int]model.OrderRecord{
		5501: {Status: "Shipped", Expected: "3-5 days", Items: []string{"Phone Case"}},
		5502: {Status: "Processing", Expected: "2 days", Items: []string{"Laptop"}},
		5503: {Status: "Delivered", Expected: "N/A", Items: []string{"Smartwatch"}},
	}}
}

// ExtractOrderID returns the first 4 to 10 digit run, with or without a
// leading '#'.
func ExtractOrderID(text string) (string, bool) {
	m := orderIDPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (s *OrderService) Lookup(ctx context.Context, text string) OrderResult {
	logger := logutil.GetLogger(ctx)
	id, ok := ExtractOrderID(text)
	if !ok {
		logger.Info("no order id in query")
		return OrderResult{Message: missingOrderIDMessage}
	}
	notFound := OrderResult{OrderID: id, Message: fmt.Sprintf("No order found for ID #%s", id)}
	num, err := strconv.Atoi(id)
	if err != nil {
		return notFound
	}
	record, ok := s.orders[num]
	if !ok {
		logger.Info("order not found", zap.String("order_id", id))
		return notFound
	}
	logger.Info("order found", zap.Int("order_id", num), zap.String("status", record.Status))
	return OrderResult{OrderID: id, Record: &record}
}
