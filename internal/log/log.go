package log

import (
	"io"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func init() {
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)
}

// Init applies the configured level and optional log file. With a file the
// output is duplicated to stdout.
func Init(level, file string) {
	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	if file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			logger.WithField("file", file).Warn("could not open log file")
			return
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, f))
	}
}

func entry(c *fiber.Ctx, action string, fields map[string]any) *logrus.Entry {
	f := logrus.Fields{"action": action}
	for k, v := range fields {
		f[k] = v
	}
	if c != nil {
		f["ip"] = c.IP()
		f["method"] = c.Method()
		f["path"] = c.Path()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			f["req_id"] = rid
		}
	}
	return logger.WithFields(f)
}

func Info(c *fiber.Ctx, action string, fields map[string]any) { entry(c, action, fields).Info(action) }

func Warn(c *fiber.Ctx, action string, fields map[string]any) { entry(c, action, fields).Warn(action) }

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	e := entry(c, action, fields)
	if err != nil {
		e = e.WithError(err)
	}
	e.Error(action)
}
