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

// Package v1 holds the request and response bodies of the /api/v1 endpoints.
package v1

import "github.com/apprenticelog/apprenticelog/pkg/common/structs"

// CommentContextSpec is the body of a PUT request
type CommentContextSpec struct {
	TrainingStartDate string `json:"training_start_date"`
	TrainingYear      int    `json:"training_year"`
	TeamName          string `json:"team_name"`
}

// ToCommentContext converts the request body without validating it
func (s CommentContextSpec) ToCommentContext() structs.CommentContext {
	return structs.NewCommentContext(s.TrainingStartDate, s.TrainingYear, s.TeamName)
}

// CommentContext is a stored comment context together with its user id
type CommentContext struct {
	UserID            string `json:"user_id"`
	TrainingStartDate string `json:"training_start_date"`
	TrainingYear      int    `json:"training_year"`
	TeamName          string `json:"team_name"`
}

func FromCommentContext(userID string, cc structs.CommentContext) CommentContext {
	return CommentContext{
		UserID:            userID,
		TrainingStartDate: cc.GetTrainingStartDate(),
		TrainingYear:      cc.GetTrainingYear(),
		TeamName:          cc.GetTeamName(),
	}
}

type CommentContextList struct {
	Items []CommentContext `json:"items"`
	Count int              `json:"count"`
}

type Status struct {
	Service string `json:"service"`
	Status  string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
