package vizportal

type createPATParams struct {
	ClientID string `json:"clientId"`
}

type createPATRequest struct {
	Method string          `json:"method"`
	Params createPATParams `json:"params"`
}

// createPATResponse holds the secret token value in Result.
type createPATResponse struct {
	Result string `json:"result"`
}
