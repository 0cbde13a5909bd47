package email

// Drip subjects come from the sequence policy; only fixed subjects live here.
const (
	subjectAgingDigestFmt = "%d leads need your attention"
	subjectQuoteFmt       = "Your proposal %s is ready"
)
