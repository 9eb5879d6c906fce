package ipfs

import "time"

type Attribute struct {
	TraitType string      `json:"trait_type" bson:"trait_type"`
	Value     interface{} `json:"value" bson:"value"`
}

// NFTMetadata follows the ERC-721 metadata JSON schema.
type NFTMetadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
	CreatedAt   string      `json:"created_at,omitempty"`
}

type PostMetadata struct {
	Content   string   `json:"content"`
	Media     []string `json:"media"`
	Tags      []string `json:"tags"`
	Mentions  []string `json:"mentions"`
	CreatedAt string   `json:"created_at"`
	Type      string   `json:"type"`
}

type ProfileMetadata struct {
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	Avatar    string `json:"avatar,omitempty"`
	Cover     string `json:"cover,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Type      string `json:"type"`
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func NewNFTMetadata(name, description, imageURI string, attributes []Attribute) NFTMetadata {
	if attributes == nil {
		attributes = []Attribute{}
	}
	return NFTMetadata{
		Name:        name,
		Description: description,
		Image:       imageURI,
		Attributes:  attributes,
		CreatedAt:   now(),
	}
}

func NewPostMetadata(content string, mediaURIs, tags, mentions []string) PostMetadata {
	return PostMetadata{
		Content:   content,
		Media:     orEmpty(mediaURIs),
		Tags:      orEmpty(tags),
		Mentions:  orEmpty(mentions),
		CreatedAt: now(),
		Type:      "post",
	}
}

// NewCommentMetadata has the post shape without tags.
func NewCommentMetadata(content string, mediaURIs, mentions []string) PostMetadata {
	return PostMetadata{
		Content:   content,
		Media:     orEmpty(mediaURIs),
		Tags:      []string{},
		Mentions:  orEmpty(mentions),
		CreatedAt: now(),
		Type:      "comment",
	}
}

func NewProfileMetadata(username, bio, avatarURI, coverURI string) ProfileMetadata {
	ts := now()
	return ProfileMetadata{
		Username:  username,
		Bio:       bio,
		Avatar:    avatarURI,
		Cover:     coverURI,
		CreatedAt: ts,
		UpdatedAt: ts,
		Type:      "profile",
	}
}
