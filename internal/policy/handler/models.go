package handler

import (
	"github.com/ThomasGates3/ai-powered-iam/internal/policy/models"
)

// CreatePolicyRequest is the body of POST /policies.
type CreatePolicyRequest struct {
	Description string `json:"description"`
}

// PolicyResponse is one stored policy on the wire. policy_json carries the
// document as a serialized string.
type PolicyResponse struct {
	PolicyID    string `json:"policy_id"`
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
	PolicyJSON  string `json:"policy_json"`
}

// ListPoliciesResponse is the body of GET /policies.
type ListPoliciesResponse struct {
	Policies []PolicyResponse `json:"policies"`
}

// MessageResponse is the body of a successful delete.
type MessageResponse struct {
	Message string `json:"message"`
}

func toPolicyResponse(rec *models.Record) PolicyResponse {
	return PolicyResponse{
		PolicyID:    rec.ID,
		Timestamp:   rec.Timestamp(),
		Description: rec.Description,
		PolicyJSON:  rec.PolicyJSON,
	}
}

func toListResponse(records []*models.Record) ListPoliciesResponse {
	out := ListPoliciesResponse{Policies: make([]PolicyResponse, 0, len(records))}
	for _, rec := range records {
		out.Policies = append(out.Policies, toPolicyResponse(rec))
	}
	return out
}
