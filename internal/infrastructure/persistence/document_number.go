package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// nextDocumentNumber returns PREFIX-YYYYMMDD-NNNNN, one past the highest
// number issued today for the company. The unique (company_id, number) index
// catches the rare race between two writers.
func nextDocumentNumber(ctx context.Context, db *Database, model any, companyID uuid.UUID, prefix string) (string, error) {
	dayPrefix := fmt.Sprintf("%s-%s-", prefix, time.Now().Format("20060102"))

	var last struct{ Number string }
	err := db.Conn(ctx).
		Model(model).
		Select("number").
		Where("company_id = ? AND number LIKE ?", companyID, dayPrefix+"%").
		Order("number DESC").
		Limit(1).
		Take(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	next := 1
	if err == nil && last.Number != "" {
		var n int
		if _, scanErr := fmt.Sscanf(strings.TrimPrefix(last.Number, dayPrefix), "%d", &n); scanErr == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%05d", dayPrefix, next), nil
}
