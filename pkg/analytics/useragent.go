package analytics

import (
	"regexp"
)

var (
	mobileRe  = regexp.MustCompile(`(?i)mobile`)
	tabletRe  = regexp.MustCompile(`(?i)tablet`)
	browserRe = regexp.MustCompile(`(Firefox|Chrome|Safari|Edge|Opera)/[\d.]+`)
)

// DeviceClass определяет класс устройства по строке user-agent.
// Многие планшетные user-agent содержат оба токена, mobile имеет приоритет
func DeviceClass(userAgent string) string {

	switch {
	case mobileRe.MatchString(userAgent):
		return "mobile"
	case tabletRe.MatchString(userAgent):
		return "tablet"
	default:
		return "desktop"
	}
}

// BrowserName выделяет имя браузера по первой сигнатуре "Имя/версия"
// из фиксированного списка. Всё, что не распознано - "Other"
func BrowserName(userAgent string) string {

	match := browserRe.FindStringSubmatch(userAgent)
	if len(match) < 2 {
		return "Other"
	}

	return match[1]
}
