package signal

// Wire messages of the room signaling protocol. Every frame is a JSON
// object with a "type" field.

type envelope struct {
	Type string `json:"type"`
}

type joinMessage struct {
	Type   string `json:"type"`
	Room   string `json:"room"`
	Name   string `json:"name,omitempty"`
	Node   string `json:"node,omitempty"`
	P2P    bool   `json:"p2p"`
	Bridge bool   `json:"bridge"`
}

type renameMessage struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type sdpMessage struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type candidateMessage struct {
	Type          string `json:"type"`
	Candidate     string `json:"candidate"`
	SDPMid        string `json:"sdpMid,omitempty"`
	SDPMLineIndex uint16 `json:"sdpMLineIndex,omitempty"`
}

type roomStateMessage struct {
	Type     string `json:"type"`
	Room     string `json:"room"`
	RoomName string `json:"room_name"`
	Count    int    `json:"count"`
}

type memberMessage struct {
	Type string `json:"type"`
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

const (
	msgJoin          = "join"
	msgLeave         = "leave"
	msgRename        = "rename"
	msgPing          = "ping"
	msgPong          = "pong"
	msgOffer         = "offer"
	msgAnswer        = "answer"
	msgCandidate     = "candidate"
	msgRoomState     = "room_state"
	msgLeft          = "left"
	msgMemberJoined  = "member_joined"
	msgMemberLeft    = "member_left"
	msgMemberUpdated = "member_updated"
	msgWhoAmI        = "whoami"
	msgError         = "error"
)
