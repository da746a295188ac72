package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"coffeehouse-service/internal/docstore"
	"coffeehouse-service/internal/models"
	"coffeehouse-service/internal/util"

	"go.uber.org/zap"
)

var (
	cardNumberPattern = regexp.MustCompile(`^\d{16}$`)
	expiryPattern     = regexp.MustCompile(`^\d{2}/\d{2}$`)
	holderPattern     = regexp.MustCompile(`^[A-Z\s]{2,50}$`)
	cvvPattern        = regexp.MustCompile(`^\d{3}$`)
)

// ValidateCard checks a raw card form and returns every failed rule in a
// fixed order: number, expiry, holder, CVV. Callers report the first entry
// to the user. An expiry equal to the current month is still valid.
func ValidateCard(input models.CardInput, now time.Time) []string {
	var errs []string

	number := strings.ReplaceAll(input.CardNumber, " ", "")
	if number == "" {
		errs = append(errs, "Card number is required")
	} else if !cardNumberPattern.MatchString(number) {
		errs = append(errs, "Card number must be 16 digits")
	}

	if input.ExpiryDate == "" {
		errs = append(errs, "Expiry date is required")
	} else if !expiryPattern.MatchString(input.ExpiryDate) {
		errs = append(errs, "Expiry date must be in MM/YY format")
	} else {
		parts := strings.SplitN(input.ExpiryDate, "/", 2)
		month, _ := strconv.Atoi(parts[0])
		year, _ := strconv.Atoi(parts[1])
		currentYear := now.Year() % 100
		currentMonth := int(now.Month())

		if month < 1 || month > 12 {
			errs = append(errs, "Invalid month in expiry date")
		} else if year < currentYear || (year == currentYear && month < currentMonth) {
			errs = append(errs, "Card has expired")
		}
	}

	if input.CardHolder == "" {
		errs = append(errs, "Cardholder name is required")
	} else if !holderPattern.MatchString(input.CardHolder) {
		errs = append(errs, "Cardholder name must be 2-50 characters long and in capital letters")
	}

	if input.CVV == "" {
		errs = append(errs, "CVV is required")
	} else if !cvvPattern.MatchString(input.CVV) {
		errs = append(errs, "CVV must be 3 digits")
	}

	return errs
}

// MaskCardNumber reduces a full card number to its display-safe form
func MaskCardNumber(number string) string {
	cleaned := strings.ReplaceAll(number, " ", "")
	if len(cleaned) < 4 {
		return "****"
	}
	return "****" + cleaned[len(cleaned)-4:]
}

// PaymentMethodService stores validated cards. Only the masked number,
// expiry and holder survive into the document store; the raw number and
// CVV are discarded after validation.
type PaymentMethodService struct {
	store  docstore.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewPaymentMethodService creates a new payment method service
func NewPaymentMethodService(store docstore.Store) *PaymentMethodService {
	return &PaymentMethodService{
		store:  store,
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// Save validates the card and persists its masked form. Validation
// failures come back as user-facing messages with no store write.
func (s *PaymentMethodService) Save(ctx context.Context, userID string, input models.CardInput) (*models.PaymentMethod, []string, error) {
	ctx, span := util.StartSpan(ctx, "PaymentMethodService.Save")
	defer span.End()

	if errs := ValidateCard(input, s.now()); len(errs) > 0 {
		util.CardValidationFailuresTotal.WithLabelValues(failedField(errs[0])).Inc()
		return nil, errs, nil
	}

	method := models.PaymentMethod{
		UserID:           userID,
		CardNumberMasked: MaskCardNumber(input.CardNumber),
		ExpiryDate:       input.ExpiryDate,
		CardHolder:       input.CardHolder,
		CreatedAt:        models.Timestamp(s.now()),
	}

	id, err := s.store.Create(ctx, models.CollectionPaymentMethods, method)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to save payment method: %w", err)
	}

	method.StoreID = id
	util.CardsSavedTotal.Inc()
	s.logger.Info("Payment card saved",
		zap.String("user_id", userID),
		zap.String("card", method.CardNumberMasked))
	return &method, nil, nil
}

// List returns the user's stored cards
func (s *PaymentMethodService) List(ctx context.Context, userID string) ([]models.PaymentMethod, error) {
	docs, err := s.store.List(ctx, models.CollectionPaymentMethods)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}

	methods := make([]models.PaymentMethod, 0, len(docs))
	for _, doc := range docs {
		var method models.PaymentMethod
		if err := doc.Decode(&method); err != nil {
			return nil, fmt.Errorf("failed to decode payment method %s: %w", doc.ID, err)
		}
		if method.UserID != userID {
			continue
		}
		method.StoreID = doc.ID
		methods = append(methods, method)
	}
	return methods, nil
}

// Get reads one stored card and checks ownership
func (s *PaymentMethodService) Get(ctx context.Context, userID, id string) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	if err := s.store.Get(ctx, models.CollectionPaymentMethods, id, &method); err != nil {
		return nil, err
	}
	if method.UserID != userID {
		return nil, docstore.ErrNotFound
	}
	method.StoreID = id
	return &method, nil
}

// Delete removes a stored card. Orders that referenced it keep the masked
// label they snapshotted at creation.
func (s *PaymentMethodService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, models.CollectionPaymentMethods, id)
}

func failedField(msg string) string {
	switch {
	case strings.Contains(msg, "Card number"):
		return "card_number"
	case strings.Contains(msg, "Expiry") || strings.Contains(msg, "expiry") || strings.Contains(msg, "expired"):
		return "expiry_date"
	case strings.Contains(msg, "Cardholder"):
		return "card_holder"
	default:
		return "cvv"
	}
}
