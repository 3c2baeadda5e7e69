package dto

import "time"

type UserProfileResponse struct {
	Uid         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	LastLogin   time.Time `json:"lastLogin"`
}

// UpdateProfileRequest carries the explicit allow-list of mutable profile
// fields. Anything else in the request body is ignored at the boundary.
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
	PhoneNumber *string `json:"phoneNumber"`
}

func (r *UpdateProfileRequest) HasUpdates() bool {
	return r.DisplayName != nil || r.PhotoURL != nil || r.PhoneNumber != nil
}
