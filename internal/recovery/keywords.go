package recovery

import "strings"

// defaultWorkKeywords mark a window title as work context.
var defaultWorkKeywords = []string{
	"code", "python", "javascript", "typescript", "java", "cpp",
	"github", "gitlab", "bitbucket",
	"documentation", "docs", "api",
	"stack overflow", "stackoverflow",
	"terminal", "console", "powershell", "bash",
	"vscode", "intellij", "eclipse", "idea", "pycharm",
	"sublime", "vim",
	"figma", "sketch", "photoshop", "illustrator",
	"design", "prototype", "wireframe",
	"document", "report", "paper",
	"word", "excel", "powerpoint",
	"claude", "chatgpt", "gemini", "copilot", "cursor",
}

// defaultDistractionKeywords mark a title or URL as distraction content.
var defaultDistractionKeywords = []string{
	"bilibili", "youtube", "tiktok",
	"netflix", "hulu", "disney",
	"twitter", "instagram", "facebook",
	"reddit", "twitch",
	"game", "steam", "epic",
	"novel", "comic", "manga",
}

// workApps mark an app as an IDE or editor.
var workApps = []string{
	"code", "vscode", "intellij", "pycharm", "idea",
	"eclipse", "netbeans", "xcode", "android studio",
	"vim", "nvim", "emacs",
	"sublime", "atom",
}

// browsers are app names that need URL inspection instead of an
// app-level verdict.
var browsers = []string{"chrome", "edge", "firefox", "brave", "safari", "opera"}

func containsAny(s string, keywords []string) bool {
	s = strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func isWorkApp(app string) bool { return app != "" && containsAny(app, workApps) }
func isBrowser(app string) bool { return app != "" && containsAny(app, browsers) }

func (d *Detector) isDistractionURL(url string) bool {
	return url != "" && containsAny(url, d.distractionKeywords)
}

func (d *Detector) hasWorkContext(title string) bool {
	return title != "" && containsAny(title, d.workKeywords)
}

func (d *Detector) isDistractionTitle(title string) bool {
	return title != "" && containsAny(title, d.distractionKeywords)
}
