package models

// ShowcaseStatus is the value stored at visuals.showcaseProcessingStatus.
type ShowcaseStatus string

const (
	StatusRemovingBackground ShowcaseStatus = "removing-background"
	StatusUpscaling          ShowcaseStatus = "upscaling"
	StatusFinalizing         ShowcaseStatus = "finalizing"
	StatusComplete           ShowcaseStatus = "complete"
	StatusFailed             ShowcaseStatus = "failed"
)

// Dotted Firestore paths written by the worker. Updates always target these
// individual fields so the rest of the character document is left untouched.
const (
	FieldShowcaseStatus      = "visuals.showcaseProcessingStatus"
	FieldShowcaseImageURL    = "visuals.showcaseImageUrl"
	FieldIsShowcaseProcessed = "visuals.isShowcaseProcessed"
)

// JobKey identifies one processing run. Both parts come from the upload path
// raw-uploads/{userID}/{characterID}/...
type JobKey struct {
	UserID      string
	CharacterID string
}
