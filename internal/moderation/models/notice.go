package models

// NoticeType selects the template a downstream renderer uses.
type NoticeType string

const (
	// NoticeContactSharingAttempt is sent for every strike.
	NoticeContactSharingAttempt NoticeType = "CONTACT_SHARING_ATTEMPT"
	// NoticeSuspensionWarning is the strike-2 "approaching suspension" notice.
	NoticeSuspensionWarning NoticeType = "SUSPENSION_WARNING"
	// NoticeSuspensionFinal is the strike-3 terminal notice.
	NoticeSuspensionFinal NoticeType = "SUSPENSION_FINAL"
)
