package plan

type Plan string
type Feature string

const (
	Free Plan = "free"
	Pro  Plan = "pro"
)

const (
	FeatureExport      Feature = "export"
	FeatureEmailExport Feature = "email_export"
	FeatureCloudSync   Feature = "cloud_sync"
	FeatureChat        Feature = "chat"
)

// Can reports whether a user on p may use f. Unknown plans get nothing.
func Can(p Plan, f Feature) bool {
	switch p {
	case Pro:
		return f == FeatureExport || f == FeatureEmailExport || f == FeatureCloudSync || f == FeatureChat
	case Free:
		return f == FeatureExport || f == FeatureEmailExport || f == FeatureCloudSync
	default:
		return false
	}
}

func ForProfile(isPro bool) Plan {
	if isPro {
		return Pro
	}
	return Free
}

func Normalize(p string) Plan {
	switch Plan(p) {
	case Free, Pro:
		return Plan(p)
	default:
		return Free
	}
}
