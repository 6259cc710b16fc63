package app

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/toughshop/internal/catalog"
	"github.com/talkincode/toughshop/internal/domain"
	"github.com/talkincode/toughshop/pkg/common"
	"go.uber.org/zap"
)

var oprActions = map[string]string{
	catalog.TopicCreated:  "product_create",
	catalog.TopicFeatured: "product_feature",
	catalog.TopicDeleted:  "product_delete",
}

// subscribeOprLog records every catalog mutation in the operation log
func (a *Application) subscribeOprLog() error {
	for topic, action := range oprActions {
		action := action
		if err := a.bus.Subscribe(topic, func(e catalog.Event) {
			a.writeOprLog(action, e)
		}); err != nil {
			return errors.Wrapf(err, "subscribe %s", topic)
		}
	}
	return nil
}

func oprDesc(action string, p domain.Product) string {
	switch action {
	case "product_feature":
		return fmt.Sprintf("set featured=%t on %s (%d)", p.IsFeatured, p.Name, p.ID)
	case "product_delete":
		return fmt.Sprintf("deleted %s (%d)", p.Name, p.ID)
	default:
		return fmt.Sprintf("created %s (%d) in %s", p.Name, p.ID, p.Category)
	}
}

func (a *Application) writeOprLog(action string, e catalog.Event) {
	err := a.gormDB.Create(&domain.OprLog{
		ID:        common.UUIDint64(),
		OprID:     e.OprID,
		OptAction: action,
		OptDesc:   oprDesc(action, e.Product),
		OptTime:   e.Time,
	}).Error
	if err != nil {
		zap.L().Error("failed to write operation log", zap.String("action", action), zap.Error(err))
	}
}

// purgeOprLog removes log rows older than the retention window
func (a *Application) purgeOprLog(retentDays int) int64 {
	if retentDays <= 0 {
		return 0
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentDays)
	res := a.gormDB.Where("opt_time < ?", cutoff).Delete(&domain.OprLog{})
	if res.Error != nil {
		zap.L().Error("failed to purge operation log", zap.Error(res.Error))
		return 0
	}
	return res.RowsAffected
}
