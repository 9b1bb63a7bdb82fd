package realtime

// Stream names used by the subscriptions of this package.
const (
	StreamRoomMessages = "stream-room-messages"
	StreamNotifyUser   = "stream-notify-user"
	StreamNotifyRoom   = "stream-notify-room"
)

// MessageQualifier is the t field of a room message. Plain chat messages have none.
type MessageQualifier string

const (
	UserJoined  MessageQualifier = "uj"
	UserLeft    MessageQualifier = "ul"
	UserAdded   MessageQualifier = "au"
	UserRemoved MessageQualifier = "ru"
)

type ChannelType string

const (
	DirectMessage  ChannelType = "d"
	PrivateChannel ChannelType = "p"
	PublicChannel  ChannelType = "c"
)

// Emoji is a reaction shortcode.
type Emoji string

const (
	Grin                   Emoji = ":grin:"
	SweatSmile             Emoji = ":sweat_smile:"
	Joy                    Emoji = ":joy:"
	HeartEyes              Emoji = ":heart_eyes:"
	SmilingFaceWith3Hearts Emoji = ":smiling_face_with_3_hearts:"
	Nerd                   Emoji = ":nerd:"
	Sunglasses             Emoji = ":sunglasses:"
	PartyingFace           Emoji = ":partying_face:"
	Sob                    Emoji = ":sob:"
	ExplodingHead          Emoji = ":exploding_head:"
	Fearful                Emoji = ":fearful:"
	RollingEyes            Emoji = ":rolling_eyes:"
	ThumbsUp               Emoji = ":thumbsup:"
	ThumbsDown             Emoji = ":thumbsdown:"
	FingersCrossed         Emoji = ":fingers_crossed:"
	Metal                  Emoji = ":metal:"
	V                      Emoji = ":v:"
	ManFacepalming         Emoji = ":man_facepalming:"
	PointUp                Emoji = ":point_up:"
	Penguin                Emoji = ":penguin:"
)
