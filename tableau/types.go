package tableau

// signInRequest is the JSON body of POST /api/{version}/auth/signin.
type signInRequest struct {
	Credentials signInCredentials `json:"credentials"`
}

type signInCredentials struct {
	Name     string   `json:"name"`
	Password string   `json:"password"`
	Site     siteRef  `json:"site"`
	User     *userRef `json:"user,omitempty"` // Impersonation target
}

type siteRef struct {
	ID         string `json:"id,omitempty"`
	ContentURL string `json:"contentUrl"`
}

type userRef struct {
	ID string `json:"id"`
}

type signInResponse struct {
	Credentials struct {
		Token string  `json:"token"`
		Site  siteRef `json:"site"`
		User  userRef `json:"user"`
	} `json:"credentials"`
}

type pagination struct {
	PageNumber     string `json:"pageNumber"`
	PageSize       string `json:"pageSize"`
	TotalAvailable string `json:"totalAvailable"`
}

type userRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	SiteRole string `json:"siteRole"`
}

type queryUsersResponse struct {
	Pagination pagination `json:"pagination"`
	Users      struct {
		User []userRecord `json:"user"`
	} `json:"users"`
}

// errorResponse is the REST API error envelope.
type errorResponse struct {
	Error struct {
		Summary string `json:"summary"`
		Detail  string `json:"detail"`
		Code    string `json:"code"`
	} `json:"error"`
}
