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

package handlers

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	v1 "github.com/apprenticelog/apprenticelog/api/v1"
	"github.com/apprenticelog/apprenticelog/pkg/clients/ldap"
	"github.com/apprenticelog/apprenticelog/pkg/config"
	"github.com/apprenticelog/apprenticelog/pkg/logger"
	"github.com/apprenticelog/apprenticelog/pkg/store"
	"github.com/apprenticelog/apprenticelog/pkg/trainingyear"
)

const userIDParam = "userID"

type Handlers struct {
	config    *config.AppConfig
	store     store.Store
	directory ldap.LDAPClient
	now       func() time.Time
}

// NewHandlers wires the comment context endpoints. directory may be nil when
// no LDAP server is configured, resolve then answers 503.
func NewHandlers(cfg *config.AppConfig, s store.Store, directory ldap.LDAPClient) *Handlers {
	return &Handlers{
		config:    cfg,
		store:     s,
		directory: directory,
		now:       time.Now,
	}
}

// WithClock replaces the reference time used when resolving training years
func (h *Handlers) WithClock(now func() time.Time) *Handlers {
	h.now = now
	return h
}

func (h *Handlers) ListCommentContexts(c *gin.Context) {
	all, err := h.store.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]v1.CommentContext, 0, len(all))
	for userID, cc := range all {
		items = append(items, v1.FromCommentContext(userID, cc))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].UserID < items[j].UserID })

	c.JSON(http.StatusOK, v1.CommentContextList{Items: items, Count: len(items)})
}

func (h *Handlers) GetCommentContext(c *gin.Context) {
	userID := c.Param(userIDParam)

	cc, err := h.store.Get(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v1.FromCommentContext(userID, cc))
}

// PutCommentContext stores the body values as given, without range checks
func (h *Handlers) PutCommentContext(c *gin.Context) {
	userID := c.Param(userIDParam)

	var spec v1.CommentContextSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: "malformed request body: " + err.Error()})
		return
	}

	cc := spec.ToCommentContext()
	if err := h.store.Put(c.Request.Context(), userID, cc); err != nil {
		h.fail(c, err)
		return
	}

	logger.Logger(c.Request.Context()).WithField("userID", userID).Info("comment context stored")
	c.JSON(http.StatusOK, v1.FromCommentContext(userID, cc))
}

func (h *Handlers) DeleteCommentContext(c *gin.Context) {
	userID := c.Param(userIDParam)

	if err := h.store.Delete(c.Request.Context(), userID); err != nil {
		h.fail(c, err)
		return
	}

	logger.Logger(c.Request.Context()).WithField("userID", userID).Info("comment context deleted")
	c.Status(http.StatusNoContent)
}

// ResolveCommentContext fetches the user's values from the directory, fills in
// a missing training year and stores the result.
func (h *Handlers) ResolveCommentContext(c *gin.Context) {
	if h.directory == nil {
		c.JSON(http.StatusServiceUnavailable, v1.ErrorResponse{Error: "directory lookup is not configured"})
		return
	}

	ctx := c.Request.Context()
	userID := c.Param(userIDParam)
	log := logger.Logger(ctx).WithField("userID", userID)

	cc, err := h.directory.GetCommentContext(ctx, userID)
	if err != nil {
		h.fail(c, err)
		return
	}

	if completed, ok := trainingyear.Complete(cc, h.config.TrainingYear.DateLayouts, h.now()); ok {
		log.WithField("trainingYear", completed.GetTrainingYear()).Info("derived training year from start date")
		cc = completed
	}

	if err := h.store.Put(ctx, userID, cc); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v1.FromCommentContext(userID, cc))
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ldap.ErrNoUserFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrEmptyUserID):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		logger.Logger(c.Request.Context()).WithError(err).Error("comment context request failed")
	}
	c.JSON(status, v1.ErrorResponse{Error: err.Error()})
}
