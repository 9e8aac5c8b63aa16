package telegram

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var loggerOnce sync.Once

// setLibraryLogger installs l as the Bot API library's logger. The library
// logger is process-wide, so only the first call takes effect.
func setLibraryLogger(l *slog.Logger) {
	loggerOnce.Do(func() {
		_ = tgbotapi.SetLogger(&botLogger{logger: l})
	})
}

// botLogger routes the Bot API library's log output to slog.
type botLogger struct {
	logger *slog.Logger
}

func (l *botLogger) Println(v ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintln(v...)), slog.String("component", "telegram-bot-api"))
}

func (l *botLogger) Printf(format string, v ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "telegram-bot-api"))
}
