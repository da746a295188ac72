package service

import (
	"context"
	"testing"
	"time"

	"coffeehouse-service/internal/docstore"
	"coffeehouse-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validation runs against a fixed clock so expiry checks are deterministic
var cardTestNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func validCard() models.CardInput {
	return models.CardInput{
		CardNumber: "4111111111111111",
		ExpiryDate: "12/29",
		CardHolder: "JOHN DOE",
		CVV:        "123",
	}
}

func TestValidateCardAccepted(t *testing.T) {
	errs := ValidateCard(validCard(), cardTestNow)
	assert.Empty(t, errs)
}

func TestValidateCardNumber(t *testing.T) {
	card := validCard()
	card.CardNumber = "411111111111111" // 15 digits
	errs := ValidateCard(card, cardTestNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "Card number must be 16 digits", errs[0])

	card.CardNumber = ""
	errs = ValidateCard(card, cardTestNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "Card number is required", errs[0])

	// spaces in the number are cosmetic
	card.CardNumber = "4111 1111 1111 1111"
	assert.Empty(t, ValidateCard(card, cardTestNow))
}

func TestValidateCardExpiry(t *testing.T) {
	card := validCard()

	card.ExpiryDate = "01/20"
	errs := ValidateCard(card, cardTestNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "Card has expired", errs[0])

	card.ExpiryDate = "13/29"
	errs = ValidateCard(card, cardTestNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "Invalid month in expiry date", errs[0])

	card.ExpiryDate = "1229"
	errs = ValidateCard(card, cardTestNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "Expiry date must be in MM/YY format", errs[0])

	// the current month is still valid
	card.ExpiryDate = "06/24"
	assert.Empty(t, ValidateCard(card, cardTestNow))

	// the month before is not
	card.ExpiryDate = "05/24"
	errs = ValidateCard(card, cardTestNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "Card has expired", errs[0])
}

func TestValidateCardHolder(t *testing.T) {
	card := validCard()

	card.CardHolder = "John Doe"
	errs := ValidateCard(card, cardTestNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "Cardholder name must be 2-50 characters long and in capital letters", errs[0])

	card.CardHolder = ""
	errs = ValidateCard(card, cardTestNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "Cardholder name is required", errs[0])
}

func TestValidateCardCVV(t *testing.T) {
	card := validCard()

	card.CVV = "12"
	errs := ValidateCard(card, cardTestNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "CVV must be 3 digits", errs[0])

	card.CVV = ""
	errs = ValidateCard(card, cardTestNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "CVV is required", errs[0])
}

func TestValidateCardReportsFailuresInFieldOrder(t *testing.T) {
	errs := ValidateCard(models.CardInput{}, cardTestNow)
	require.Equal(t, []string{
		"Card number is required",
		"Expiry date is required",
		"Cardholder name is required",
		"CVV is required",
	}, errs)
}

func TestMaskCardNumber(t *testing.T) {
	assert.Equal(t, "****1111", MaskCardNumber("4111111111111111"))
	assert.Equal(t, "****1111", MaskCardNumber("4111 1111 1111 1111"))
	assert.Equal(t, "****", MaskCardNumber("12"))
}

func TestSaveStoresMaskedCardOnly(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc := NewPaymentMethodService(store)
	svc.now = func() time.Time { return cardTestNow }
	ctx := context.Background()

	method, validationErrs, err := svc.Save(ctx, "user-1", validCard())
	require.NoError(t, err)
	require.Empty(t, validationErrs)
	require.NotNil(t, method)

	assert.Equal(t, "****1111", method.CardNumberMasked)
	assert.Equal(t, "12/29", method.ExpiryDate)
	assert.Equal(t, "JOHN DOE", method.CardHolder)
	assert.NotEmpty(t, method.StoreID)

	stored, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "****1111", stored[0].CardNumberMasked)
}

func TestSaveRejectsInvalidCardWithoutWriting(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc := NewPaymentMethodService(store)
	svc.now = func() time.Time { return cardTestNow }
	ctx := context.Background()

	card := validCard()
	card.ExpiryDate = "01/20"

	method, validationErrs, err := svc.Save(ctx, "user-1", card)
	require.NoError(t, err)
	assert.Nil(t, method)
	require.Len(t, validationErrs, 1)
	assert.Equal(t, "Card has expired", validationErrs[0])

	stored, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestPaymentMethodOwnership(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc := NewPaymentMethodService(store)
	svc.now = func() time.Time { return cardTestNow }
	ctx := context.Background()

	method, _, err := svc.Save(ctx, "user-1", validCard())
	require.NoError(t, err)

	_, err = svc.Get(ctx, "user-2", method.StoreID)
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	err = svc.Delete(ctx, "user-2", method.StoreID)
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	// the owner still sees it
	got, err := svc.Get(ctx, "user-1", method.StoreID)
	require.NoError(t, err)
	assert.Equal(t, "****1111", got.CardNumberMasked)

	require.NoError(t, svc.Delete(ctx, "user-1", method.StoreID))
	_, err = svc.Get(ctx, "user-1", method.StoreID)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}
