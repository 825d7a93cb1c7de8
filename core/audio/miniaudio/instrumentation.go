package miniaudio

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/koscakluka/ema-interview/core/audio/miniaudio"

var logger = otelslog.NewLogger(scopeName)
