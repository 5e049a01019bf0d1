package model

import "strings"

// TagDelimiter separates tags inside IndexRecord.Tags.
const TagDelimiter = "."

// IndexRecord is the summary row kept in the index collection.
type IndexRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Alias string `json:"alias"`
	Tags  string `json:"tags"`
}

// DetailsRecord holds the heavyweight data for one id.
type DetailsRecord struct {
	Bio       string   `json:"bio"`
	FullTags  []string `json:"full_tags"`
	ImagePath string   `json:"imagepath"`
}

// Record is the merged view of an IndexRecord and its DetailsRecord.
type Record struct {
	IndexRecord
	DetailsRecord
}

// Match pairs a search hit with its details, nil when the details entry is missing.
type Match struct {
	Index   IndexRecord
	Details *DetailsRecord
}

// NewCharacter carries the caller-supplied fields for Add.
type NewCharacter struct {
	Name  string `json:"name"`
	Alias string `json:"alias"`
	Tags  string `json:"tags"`
	Bio   string `json:"bio"`
}

// CharacterUpdate is a partial update; nil fields are left unchanged.
type CharacterUpdate struct {
	Name  *string `json:"name,omitempty"`
	Alias *string `json:"alias,omitempty"`
	Tags  *string `json:"tags,omitempty"`
	Bio   *string `json:"bio,omitempty"`
}

// IsEmpty reports whether no field is set.
func (u CharacterUpdate) IsEmpty() bool {
	return u.Name == nil && u.Alias == nil && u.Tags == nil && u.Bio == nil
}

// Card is the list/search projection served to front ends.
type Card struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Alias string   `json:"alias"`
	Image string   `json:"image"`
	Tags  []string `json:"tags"`
	Desc  string   `json:"desc"`
}

// SplitTags splits a raw tag string on TagDelimiter, keeping order and empty parts.
func SplitTags(tags string) []string {
	return strings.Split(tags, TagDelimiter)
}

// ImagePath returns the image reference recorded for id.
func ImagePath(id string) string {
	return "images/" + id + ".png"
}

// NewRecordPair builds the index and details entries for a freshly created character.
func NewRecordPair(id string, in NewCharacter) (IndexRecord, DetailsRecord) {
	idx := IndexRecord{ID: id, Name: in.Name, Alias: in.Alias, Tags: in.Tags}
	det := DetailsRecord{Bio: in.Bio, FullTags: SplitTags(in.Tags), ImagePath: ImagePath(id)}
	return idx, det
}
