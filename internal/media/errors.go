package media

import "errors"

var (
	// ErrUnreadableMedia means the container cannot be demuxed or reports no
	// decodable frames. It is the only fatal condition for a pipeline run.
	ErrUnreadableMedia = errors.New("unreadable media")

	// ErrDemuxFailure means the audio track could not be extracted. Callers
	// treat it as "no audio available", not as a pipeline failure.
	ErrDemuxFailure = errors.New("audio demux failure")
)
