package feed

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/confhub/confhub/pkg/logger"
)

// RegisterPublisher hooks the feed into gorm so every create, update or
// delete publishes a change event for the affected table. Publish failures
// are logged and do not fail the write.
func RegisterPublisher(db *gorm.DB, f Feed) error {
	publish := func(tx *gorm.DB) {
		if tx.Error != nil || tx.Statement.Schema == nil {
			return
		}
		table := tx.Statement.Table
		if table == "" {
			table = tx.Statement.Schema.Table
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := f.Publish(ctx, table); err != nil {
			logger.Debug().Err(err).Str("table", table).Msg("Change event not published")
		}
	}

	if err := db.Callback().Create().After("gorm:create").Register("feed:after_create", publish); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").Register("feed:after_update", publish); err != nil {
		return err
	}
	return db.Callback().Delete().After("gorm:delete").Register("feed:after_delete", publish)
}
