package dashboard

import (
	"strconv"
	"strings"

	"subadmin/internal/api/dto"
	"subadmin/internal/subscription"
)

const (
	FieldName  = "name"
	FieldPrice = "price"
	FieldCount = "count"
)

const (
	MsgNameRequired = "Name is required"
	MsgPriceNumber  = "Price must be a number"
	MsgCountNumber  = "Count must be a number"
)

// Draft is the editable text of the form. ID is empty while creating.
type Draft struct {
	ID    string
	Name  string
	Price string
	Count string
}

func draftFrom(s subscription.Subscription) Draft {
	return Draft{
		ID:    strconv.FormatInt(s.ID, 10),
		Name:  s.Name,
		Price: subscription.FormatNumber(s.Price),
		Count: subscription.FormatNumber(s.Count),
	}
}

func (d Draft) request() dto.SubscriptionRequest {
	return dto.SubscriptionRequest{
		Name:  d.Name,
		Price: dto.NumericText(d.Price),
		Count: dto.NumericText(d.Count),
	}
}

// ValidateDraft returns one message per invalid field; an empty map means d can be submitted.
func ValidateDraft(d Draft) map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(d.Name) == "" {
		errs[FieldName] = MsgNameRequired
	}
	if _, err := subscription.ParseNumber(d.Price); err != nil {
		errs[FieldPrice] = MsgPriceNumber
	}
	if _, err := subscription.ParseNumber(d.Count); err != nil {
		errs[FieldCount] = MsgCountNumber
	}
	return errs
}
