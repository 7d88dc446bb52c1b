package github

import (
	"encoding/json"
	"errors"
)

// ErrNotFound signals that the queried GitHub user does not exist.
var ErrNotFound = errors.New("github: user not found")

// Repo is the slice of repository data fed into the roast prompt.
type Repo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
	Language    string `json:"language"`
}

// Profile is the serialized view of a GitHub user handed to the generator.
// Field names mirror the public profile vocabulary so the prompt stays
// self-describing.
type Profile struct {
	Username         string `json:"username"`
	Name             string `json:"name"`
	Bio              string `json:"bio"`
	Followers        int    `json:"followers"`
	Following        int    `json:"following"`
	PublicRepos      int    `json:"publicRepos"`
	AccountCreatedAt string `json:"accountCreatedAt"`
	Company          string `json:"company"`
	Location         string `json:"location"`
	AvatarURL        string `json:"-"`
	TopRepos         []Repo `json:"topRepos"`
}

// PromptJSON serializes the profile for embedding in the user turn of the
// roast prompt.
func (p *Profile) PromptJSON() string {
	b, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(b)
}
