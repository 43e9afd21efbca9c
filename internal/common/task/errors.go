package task

import "errors"

var ErrChannelClosed = errors.New("channel closed without a result")
