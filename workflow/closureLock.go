package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

var ErrorClosureBusy = errors.New("closure is being processed by another operation")

const closureLockTTL = 5 * time.Minute

// ObtainClosureLock serializes imports and calculations against the same
// period. A lock held elsewhere is a conflict. An unavailable Redis is not:
// the operation proceeds unlocked, matching the last-writer-wins stance
// for the unlocked case.
func ObtainClosureLock(ctx context.Context, closureId int) (release func(), err error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		logger.WithFields(logrus.Fields{
			"field":      "ObtainClosureLock",
			"closure_id": closureId,
		}).Warn("redis lock not ready; proceeding without closure lock")
		return func() {}, nil
	}

	lockKey := fmt.Sprintf("closure-lock:%d", closureId)
	lock, err := locker.Obtain(ctx, lockKey, closureLockTTL, nil)
	if err == redislock.ErrNotObtained {
		return nil, ErrorClosureBusy
	}
	if err != nil {
		logger.WithFields(logrus.Fields{
			"field":      "ObtainClosureLock",
			"closure_id": closureId,
		}).Warn("error obtaining closure lock; proceeding without closure lock: " + err.Error())
		return func() {}, nil
	}

	return func() {
		if releaseErr := lock.Release(context.Background()); releaseErr != nil {
			logger.WithFields(logrus.Fields{
				"field":      "ObtainClosureLock",
				"closure_id": closureId,
			}).Warn("failed to release closure lock: " + releaseErr.Error())
		}
	}, nil
}
