package domain

type TrackKind string

const (
	KindAudio TrackKind = "audio"
	KindVideo TrackKind = "video"
)

type TrackOrigin string

const (
	OriginLocal  TrackOrigin = "local"
	OriginRemote TrackOrigin = "remote"
)

// Category is the listener bucket a surface is delivered to.
type Category string

const (
	CategoryLocalAudio  Category = "localAudio"
	CategoryLocalVideo  Category = "localVideo"
	CategoryRemoteAudio Category = "remoteAudio"
	CategoryRemoteVideo Category = "remoteVideo"
)

// CategoryOf maps (origin, kind) to a listener category. ok is false for
// kinds the client does not render.
func CategoryOf(origin TrackOrigin, kind TrackKind) (Category, bool) {
	switch {
	case origin == OriginLocal && kind == KindAudio:
		return CategoryLocalAudio, true
	case origin == OriginLocal && kind == KindVideo:
		return CategoryLocalVideo, true
	case origin == OriginRemote && kind == KindAudio:
		return CategoryRemoteAudio, true
	case origin == OriginRemote && kind == KindVideo:
		return CategoryRemoteVideo, true
	}
	return "", false
}
