package domain

// Credentials are the session cookies the archive backend authenticates
// with. IDU and LoginMD5 come from the login API; Session and DeviceID are
// set by the server during the login exchange.
type Credentials struct {
	IDU      string `json:"idu"`
	LoginMD5 string `json:"login_md5"`
	Session  string `json:"session,omitempty"`
	DeviceID string `json:"deviceid,omitempty"`
	LangC    string `json:"langc"`
}

// Valid reports whether the credentials carry the two mandatory cookies.
func (c Credentials) Valid() bool {
	return c.IDU != "" && c.LoginMD5 != ""
}

// ToCookies converts the credentials into request cookies.
func (c Credentials) ToCookies() map[string]string {
	langc := c.LangC
	if langc == "" {
		langc = "en-"
	}
	cookies := map[string]string{
		"idu":       c.IDU,
		"login_md5": c.LoginMD5,
		"langc":     langc,
	}
	if c.Session != "" {
		cookies["session"] = c.Session
	}
	if c.DeviceID != "" {
		cookies["deviceid"] = c.DeviceID
	}
	return cookies
}

// CredentialsFromCookies rebuilds credentials from a cookie map.
func CredentialsFromCookies(cookies map[string]string) Credentials {
	langc := cookies["langc"]
	if langc == "" {
		langc = "en-"
	}
	return Credentials{
		IDU:      cookies["idu"],
		LoginMD5: cookies["login_md5"],
		Session:  cookies["session"],
		DeviceID: cookies["deviceid"],
		LangC:    langc,
	}
}
