package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Risk is the server-side classification of an evaluation.
type Risk string

const (
	RiskHigh Risk = "HIGH"
	RiskLow  Risk = "LOW"
)

// ParseRisk normalises a risk label, rejecting anything but HIGH or LOW.
func ParseRisk(v string) (Risk, error) {
	switch Risk(strings.ToUpper(strings.TrimSpace(v))) {
	case RiskHigh:
		return RiskHigh, nil
	case RiskLow:
		return RiskLow, nil
	default:
		return "", fmt.Errorf("unknown risk %q", v)
	}
}

// FraudRecord is one evaluated transaction. Values are never modified after decoding;
// pointer fields are shared between copies and must be treated as read-only.
type FraudRecord struct {
	ID        *int64
	Amount    decimal.Decimal
	Score     float64
	Risk      Risk
	CreatedAt string

	TransactionType *int
	OldBalance      *decimal.Decimal
	NewBalance      *decimal.Decimal
	OldBalanceDest  *decimal.Decimal
	NewBalanceDest  *decimal.Decimal
	IPAddress       string
	Email           string
}

// IsHigh reports whether the record counts towards the high-risk total.
func (r FraudRecord) IsHigh() bool {
	return r.Risk == RiskHigh
}

type wireRecord struct {
	ID              *int64       `json:"id,omitempty"`
	Amount          *json.Number `json:"amount"`
	Score           *float64     `json:"score"`
	Risk            *string      `json:"risk"`
	CreatedAt       *string      `json:"createdAt,omitempty"`
	TransactionType *int         `json:"transactionType,omitempty"`
	OldBalance      *json.Number `json:"oldBalance,omitempty"`
	NewBalance      *json.Number `json:"newBalance,omitempty"`
	OldBalanceDest  *json.Number `json:"oldBalanceDest,omitempty"`
	NewBalanceDest  *json.Number `json:"newBalanceDest,omitempty"`
	IPAddress       *string      `json:"ipAddress,omitempty"`
	Email           *string      `json:"email,omitempty"`
}

// Decode parses a single JSON-encoded record and validates it.
func Decode(data []byte) (FraudRecord, error) {
	var rec FraudRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return FraudRecord{}, err
	}
	return rec, nil
}

// DecodeList parses a JSON array of records. One invalid element fails the whole list.
func DecodeList(data []byte) ([]FraudRecord, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode record list: %w", err)
	}

	records := make([]FraudRecord, 0, len(raw))
	for i, item := range raw {
		rec, err := Decode(item)
		if err != nil {
			return nil, fmt.Errorf("decode record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// UnmarshalJSON implements json.Unmarshaler with validation of required fields.
func (r *FraudRecord) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	if w.Amount == nil {
		return errors.New("record: missing amount")
	}
	amount, err := decimal.NewFromString(w.Amount.String())
	if err != nil {
		return fmt.Errorf("record: parse amount: %w", err)
	}
	if amount.IsNegative() {
		return fmt.Errorf("record: negative amount %s", amount)
	}
	if w.Score == nil {
		return errors.New("record: missing score")
	}
	if w.Risk == nil {
		return errors.New("record: missing risk")
	}
	risk, err := ParseRisk(*w.Risk)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}

	out := FraudRecord{
		ID:              w.ID,
		Amount:          amount,
		Score:           *w.Score,
		Risk:            risk,
		TransactionType: w.TransactionType,
		CreatedAt:       deref(w.CreatedAt),
		IPAddress:       deref(w.IPAddress),
		Email:           deref(w.Email),
	}

	balances := []struct {
		src *json.Number
		dst **decimal.Decimal
		key string
	}{
		{w.OldBalance, &out.OldBalance, "oldBalance"},
		{w.NewBalance, &out.NewBalance, "newBalance"},
		{w.OldBalanceDest, &out.OldBalanceDest, "oldBalanceDest"},
		{w.NewBalanceDest, &out.NewBalanceDest, "newBalanceDest"},
	}
	for _, b := range balances {
		if b.src == nil {
			continue
		}
		d, err := decimal.NewFromString(b.src.String())
		if err != nil {
			return fmt.Errorf("record: parse %s: %w", b.key, err)
		}
		*b.dst = &d
	}

	*r = out
	return nil
}

// MarshalJSON emits monetary values as JSON numbers and omits absent optionals.
func (r FraudRecord) MarshalJSON() ([]byte, error) {
	amount := json.Number(r.Amount.String())
	score := r.Score
	risk := string(r.Risk)

	w := wireRecord{
		ID:              r.ID,
		Amount:          &amount,
		Score:           &score,
		Risk:            &risk,
		TransactionType: r.TransactionType,
		OldBalance:      number(r.OldBalance),
		NewBalance:      number(r.NewBalance),
		OldBalanceDest:  number(r.OldBalanceDest),
		NewBalanceDest:  number(r.NewBalanceDest),
		CreatedAt:       optional(r.CreatedAt),
		IPAddress:       optional(r.IPAddress),
		Email:           optional(r.Email),
	}
	return json.Marshal(w)
}

var createdAtLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// ParseCreatedAt interprets the server timestamp for display. Zone-less values are
// read as UTC.
func ParseCreatedAt(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func number(d *decimal.Decimal) *json.Number {
	if d == nil {
		return nil
	}
	n := json.Number(d.String())
	return &n
}
