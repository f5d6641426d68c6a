/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package periodicjobs provides scheduled background jobs for apprenticelog.
//
// This file implements the training year rollover job, which moves stored
// training years forward as apprentices pass the anniversary of their start date.
package periodicjobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/apprenticelog/apprenticelog/pkg/cache"
	"github.com/apprenticelog/apprenticelog/pkg/common/structs"
	"github.com/apprenticelog/apprenticelog/pkg/logger"
	"github.com/apprenticelog/apprenticelog/pkg/store"
	"github.com/apprenticelog/apprenticelog/pkg/trainingyear"
)

const (
	// TrainingYearRolloverJobName is the unique identifier for the rollover periodic job.
	TrainingYearRolloverJobName = "apprenticelog_training_year_rollover"

	// DefaultTrainingYearRolloverInterval is used when no interval is configured.
	DefaultTrainingYearRolloverInterval = 24 * time.Hour

	// RolloverLastRunKey holds the RFC 3339 time of the last completed rollover pass.
	RolloverLastRunKey = "rollover:last_run"
)

// TrainingYearRolloverJob adds one to the stored training year of a comment
// context for every anniversary of its start date passed since the previous run.
//
// Stored years are taken as given and only ever moved forward. Records with a
// year of 0 or below are left alone, and the first run only records its time.
// Comment contexts are values: a changed record is written back as a new context.
type TrainingYearRolloverJob struct {
	store    store.Store
	cache    cache.Cache
	layouts  []string
	interval time.Duration

	// now returns the reference time, time.Now outside of tests
	now func() time.Time
}

// RolloverResult summarises one run of the job
type RolloverResult struct {
	Checked int
	Updated []string
	Skipped []string
}

// NewTrainingYearRolloverJob creates the job.
//
// Parameters:
//   - s: store holding the comment contexts
//   - c: cache keeping the time of the last pass under RolloverLastRunKey
//   - layouts: accepted start date layouts, empty means trainingyear.DefaultLayouts
//   - interval: time between runs, 0 or less falls back to 24h
func NewTrainingYearRolloverJob(s store.Store, c cache.Cache, layouts []string, interval time.Duration) *TrainingYearRolloverJob {
	if interval <= 0 {
		interval = DefaultTrainingYearRolloverInterval
	}
	return &TrainingYearRolloverJob{
		store:    s,
		cache:    c,
		layouts:  layouts,
		interval: interval,
		now:      time.Now,
	}
}

// WithClock replaces the reference time source
func (j *TrainingYearRolloverJob) WithClock(now func() time.Time) *TrainingYearRolloverJob {
	j.now = now
	return j
}

// AddToPeriodicTaskManager registers this job with the provided periodic task manager.
func (j *TrainingYearRolloverJob) AddToPeriodicTaskManager(mgr *PeriodicTaskManager) {
	mgr.AddTask(j)
}

func (j *TrainingYearRolloverJob) GetInterval() time.Duration {
	return j.interval
}

func (j *TrainingYearRolloverJob) GetName() string {
	return TrainingYearRolloverJobName
}

// Run executes one rollover pass.
func (j *TrainingYearRolloverJob) Run(ctx context.Context) error {
	_, err := j.Rollover(ctx)
	return err
}

// Rollover walks all stored contexts in user id order and advances the training
// year of those whose start date had an anniversary since the last pass.
//
// Update only applies when the record still equals the listed one, so an API
// write between List and Update wins over the rollover.
func (j *TrainingYearRolloverJob) Rollover(ctx context.Context) (RolloverResult, error) {
	log := logger.Logger(ctx).WithField("job", TrainingYearRolloverJobName)
	at := j.now()

	since, found, err := j.lastRun(ctx)
	if err != nil {
		log.WithError(err).Error("failed to read last rollover time")
		return RolloverResult{}, err
	}
	if !found {
		log.WithField("at", at).Info("no previous rollover recorded, starting from now")
		return RolloverResult{}, j.recordRun(ctx, at)
	}
	if at.Before(since) {
		log.WithFields(logrus.Fields{"at": at, "lastRun": since}).Warn("clock is behind the last rollover, nothing to do")
		return RolloverResult{}, nil
	}

	all, err := j.store.List(ctx)
	if err != nil {
		log.WithError(err).Error("failed to list comment contexts")
		return RolloverResult{}, err
	}

	userIDs := make([]string, 0, len(all))
	for userID := range all {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	result := RolloverResult{Checked: len(userIDs)}
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		listed := all[userID]
		if listed.GetTrainingYear() <= 0 {
			continue
		}

		userLog := log.WithField("userID", userID)

		startDate, err := trainingyear.ParseStartDate(listed.GetTrainingStartDate(), j.layouts)
		if err != nil {
			userLog.WithError(err).WithField("trainingStartDate", listed.GetTrainingStartDate()).
				Warn("skipping comment context, start date cannot be parsed")
			result.Skipped = append(result.Skipped, userID)
			continue
		}

		crossed := trainingyear.Anniversaries(startDate, since, at)
		if crossed == 0 {
			continue
		}

		updated, changed, err := j.store.Update(ctx, userID, func(current structs.CommentContext) (structs.CommentContext, bool) {
			if current != listed {
				return current, false
			}
			return structs.NewCommentContext(
				current.GetTrainingStartDate(),
				current.GetTrainingYear()+crossed,
				current.GetTeamName(),
			), true
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				userLog.Debug("comment context deleted during rollover")
				continue
			}
			userLog.WithError(err).Error("failed to update comment context")
			return result, err
		}

		if !changed {
			userLog.Debug("comment context changed during rollover, keeping the new value")
			continue
		}

		userLog.WithFields(logrus.Fields{
			"previousYear": listed.GetTrainingYear(),
			"trainingYear": updated.GetTrainingYear(),
		}).Info("training year rolled over")
		result.Updated = append(result.Updated, userID)
	}

	if err := j.recordRun(ctx, at); err != nil {
		log.WithError(err).Error("failed to record rollover time")
		return result, err
	}

	log.WithFields(logrus.Fields{
		"checked": result.Checked,
		"updated": len(result.Updated),
		"skipped": len(result.Skipped),
	}).Info("training year rollover finished")
	return result, nil
}

// lastRun returns the time of the last completed pass. An unreadable marker is
// treated as missing.
func (j *TrainingYearRolloverJob) lastRun(ctx context.Context) (time.Time, bool, error) {
	val, err := j.cache.Get(ctx, RolloverLastRunKey)
	if err != nil {
		if cache.IsNotFound(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}

	at, err := time.Parse(time.RFC3339Nano, fmt.Sprint(val))
	if err != nil {
		logger.Logger(ctx).WithError(err).WithField("value", val).Warn("ignoring unreadable last rollover time")
		return time.Time{}, false, nil
	}
	return at, true, nil
}

func (j *TrainingYearRolloverJob) recordRun(ctx context.Context, at time.Time) error {
	return j.cache.Set(ctx, RolloverLastRunKey, at.UTC().Format(time.RFC3339Nano), cache.NoExpiration)
}
