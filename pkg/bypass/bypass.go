package bypass

import (
	"strings"
)

// Пути, которые никогда не считаются короткими кодами:
// служебные роуты, статика и страницы приложения.
// Всё это обслуживает origin, редиректор такие запросы не трогает

// префиксы зарезервированных путей
var bypassPrefixes = []string{
	"/api",
	"/js",
	"/css",
	"/assets",
	"/_next",
	"/metrics",
	"/favicon.ico",
	"/robots.txt",
	"/sitemap.xml",
}

// расширения статических файлов
var bypassExtensions = []string{
	".js",
	".css",
	".png",
	".jpg",
	".jpeg",
	".gif",
	".svg",
	".ico",
	".webp",
	".woff",
	".woff2",
	".ttf",
	".eot",
	".geojson",
	".json",
	".xml",
	".txt",
}

// известные страницы приложения
var bypassPages = map[string]struct{}{
	"/":             {},
	"/index.html":   {},
	"/landing.html": {},
	"/bio.html":     {},
	"/home":         {},
	"/bio-link":     {},
	"/qr-generator": {},
	"/analytics":    {},
	"/profile":      {},
}

// ShouldBypass решает, нужно ли пропустить путь мимо логики редиректов.
// Чистая функция без побочных эффектов: только строка и два фиксированных набора
func ShouldBypass(path string) bool {

	// проверяем префиксы зарезервированных путей
	for _, prefix := range bypassPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	// проверяем расширения статических файлов
	for _, ext := range bypassExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	// проверяем известные страницы
	if _, ok := bypassPages[path]; ok {
		return true
	}

	return false
}

// ExtractShortCode вытаскивает кандидата в короткие коды из пути.
// Возвращает пустую строку, если кандидата нет (пусто или пробелы).
// Набор символов дальше не проверяется сознательно: валидность кода
// решается промахом в хранилище, а не этой функцией
func ExtractShortCode(path string) string {

	// убираем ведущие и замыкающие слэши
	code := strings.Trim(path, "/")

	if code == "" || strings.ContainsAny(code, " \t\r\n") {
		return ""
	}

	return code
}
