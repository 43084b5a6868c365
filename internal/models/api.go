package models

// SignupRequest is the body of POST /api/signup.
type SignupRequest struct {
	AccessKey string `json:"accessKey"`
	Password  string `json:"password"`
	Name      string `json:"name"`
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

// AuthResponse carries the subject and a freshly issued token.
type AuthResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// ModerateFrameRequest is the body of POST /api/moderate-frame.
type ModerateFrameRequest struct {
	Frame string `json:"frame"`
}

// RoomStatus is the public view of the shared room.
type RoomStatus struct {
	ID      string `json:"id"`
	Live    string `json:"live"`
	Members int    `json:"members"`
}
