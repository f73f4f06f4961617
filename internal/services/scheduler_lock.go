package services

import (
	"os"
	"strconv"
	"time"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"gorm.io/gorm"
)

var lockOwner = func() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return host + ":" + strconv.Itoa(os.Getpid())
}()

// TryAcquireLock takes the named lock for key until ttl elapses. An expired lock is taken over.
// It returns false without error when another instance holds the lock.
func TryAcquireLock(db *gorm.DB, name, key string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	lock := models.SchedulerLock{
		LockName:  name,
		LockKey:   key,
		LockedBy:  lockOwner,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	err := db.Create(&lock).Error
	if err == nil {
		return true, nil
	}
	if !isDuplicateKey(err) {
		return false, err
	}

	res := db.Model(&models.SchedulerLock{}).
		Where("lock_name = ? AND lock_key = ? AND expires_at < ?", name, key, now).
		Updates(map[string]interface{}{
			"locked_by":  lockOwner,
			"locked_at":  now,
			"expires_at": now.Add(ttl),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReleaseLock drops a lock held by this process
func ReleaseLock(db *gorm.DB, name, key string) error {
	return db.Where("lock_name = ? AND lock_key = ? AND locked_by = ?", name, key, lockOwner).
		Delete(&models.SchedulerLock{}).Error
}
