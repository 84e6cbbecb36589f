package access

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/api/responses"
	"github.com/studyloop/studyloop-backend/api/validators"
	"github.com/studyloop/studyloop-backend/internal/wallet"
	"github.com/studyloop/studyloop-backend/pkg/db/models"
	"github.com/studyloop/studyloop-backend/pkg/enums"
	pkgerrors "github.com/studyloop/studyloop-backend/pkg/errors"
	"github.com/studyloop/studyloop-backend/pkg/logger"
)

// WalletHistory handles the authenticated user's redemption ledger.
func WalletHistory(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.History(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]walletTransactionResponse, len(rows))
		for i, row := range rows {
			items[i] = walletTransactionResponseFromModel(row)
		}
		responses.WriteSuccess(w, map[string]any{
			"transactions": items,
			"count":        len(items),
		})
	}
}

type walletTransactionResponse struct {
	ID          uuid.UUID                     `json:"id"`
	Type        enums.WalletTransactionType   `json:"type"`
	AmountCents int                           `json:"amount_cents"`
	Code        string                        `json:"code"`
	Description string                        `json:"description,omitempty"`
	Status      enums.WalletTransactionStatus `json:"status"`
	OccurredAt  time.Time                     `json:"occurred_at"`
}

func walletTransactionResponseFromModel(m models.WalletTransaction) walletTransactionResponse {
	return walletTransactionResponse{
		ID:          m.ID,
		Type:        m.Type,
		AmountCents: m.AmountCents,
		Code:        m.Code,
		Description: m.Description,
		Status:      m.Status,
		OccurredAt:  m.OccurredAt,
	}
}
