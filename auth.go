package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/pquerna/otp/totp"
)

// arkosePublicKey is Twitter's well-known FunCaptcha public key for login flows.
const arkosePublicKey = "0152B4EB-D2DC-460A-89A1-629838B529C9"

// maxLoginRounds bounds the number of onboarding subtasks a login may take.
const maxLoginRounds = 10

// ErrLoginDenied is returned when Twitter refuses the login outright.
var ErrLoginDenied = errors.New("login denied")

// relogin clears auth credentials and performs a fresh login.
func (c *Client) relogin(acc *Account) error {
	slog.Info("attempting relogin", slog.String("user", acc.Username))

	acc.SetCredentials("", "")
	_ = removeSession(c.cfg.SessionDir, acc.Username)

	if err := c.loadOrLogin(acc, c.clientForAccount(acc)); err != nil {
		return fmt.Errorf("relogin %s: %w", acc.Username, err)
	}

	acc.Reset()
	slog.Info("relogin succeeded", slog.String("user", acc.Username))
	return nil
}

// loadOrLogin reuses a saved session when allowed, falling back to login.
// Under StrictLogin a saved session is never trusted: the password is
// checked against the server on every construction.
func (c *Client) loadOrLogin(acc *Account, client *stealth.BrowserClient) error {
	if !c.cfg.StrictLogin {
		authToken, ct0, err := loadSession(c.cfg.SessionDir, acc.Username, c.cfg.SessionTTL)
		if err != nil {
			slog.Warn("error loading session", slog.String("user", acc.Username), slog.Any("error", err))
		}
		if authToken != "" && ct0 != "" {
			acc.SetCredentials(authToken, ct0)
			slog.Info("loaded session from disk", slog.String("user", acc.Username))
			return nil
		}
	}

	if tok, c0, _ := acc.Credentials(); tok != "" && c0 != "" {
		acc.SetCredentials(tok, c0)
		slog.Info("using provided credentials", slog.String("user", acc.Username))
		c.persist(acc)
		return nil
	}

	if acc.Password == "" {
		return fmt.Errorf("no session and no password for account %s", acc.Username)
	}

	if err := c.login(acc, client); err != nil {
		return fmt.Errorf("login failed for %s: %w", acc.Username, err)
	}
	c.persist(acc)
	return nil
}

// login performs Twitter's multi-step onboarding login flow.
func (c *Client) login(acc *Account, client *stealth.BrowserClient) error {
	slog.Info("logging in", slog.String("user", acc.Username))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	guestToken, err := c.getGuestToken(client)
	if err != nil {
		return fmt.Errorf("get guest token: %w", err)
	}

	flow := &loginFlow{client: client, guestToken: guestToken}
	fr, err := flow.start()
	if err != nil {
		return fmt.Errorf("init login flow: %w", err)
	}

	for round := 0; round < maxLoginRounds && len(fr.Subtasks) > 0; round++ {
		subtaskID := fr.Subtasks[0].SubtaskID
		slog.Debug("login subtask", slog.String("user", acc.Username), slog.String("subtask", subtaskID))

		if subtaskID == "LoginSuccessSubtask" || subtaskID == "AccountDuplicationCheck" {
			slog.Debug("login flow complete", slog.String("user", acc.Username), slog.String("terminal", subtaskID))
			break
		}
		if subtaskID == "DenyLoginSubtask" {
			return fmt.Errorf("%w for %s (account may be locked or disabled)", ErrLoginDenied, acc.Username)
		}

		input, err := c.subtaskInput(ctx, acc, subtaskID)
		if err != nil {
			return err
		}
		if fr, err = flow.submit(fr.FlowToken, subtaskID, input); err != nil {
			return fmt.Errorf("login subtask %s for %s: %w", subtaskID, acc.Username, err)
		}
	}

	authToken := cookieValue(client, "auth_token")
	if authToken == "" {
		return fmt.Errorf("login completed but no auth_token in cookies for %s", acc.Username)
	}
	ct0 := cookieValue(client, "ct0")
	if ct0 == "" {
		ct0 = GenerateCT0()
	}

	acc.SetCredentials(authToken, ct0)
	slog.Info("login successful", slog.String("user", acc.Username))
	return nil
}

// subtaskInput builds the answer to one onboarding subtask, keyed by the
// input kind Twitter expects for it.
func (c *Client) subtaskInput(ctx context.Context, acc *Account, subtaskID string) (map[string]any, error) {
	next := "next_link"
	switch subtaskID {
	case "LoginJsInstrumentationSubtask":
		return map[string]any{"js_instrumentation": map[string]any{
			"response": `{"rf":{"a":"b"},"s":"s"}`,
			"link":     next,
		}}, nil

	case "LoginEnterUserIdentifierSSO":
		return map[string]any{"settings_list": map[string]any{
			"setting_responses": []any{map[string]any{
				"key":           "user_identifier",
				"response_data": map[string]any{"text_data": map[string]any{"result": acc.Username}},
			}},
			"link": next,
		}}, nil

	case "LoginEnterPassword":
		return map[string]any{"enter_password": map[string]any{"password": acc.Password, "link": next}}, nil

	case "LoginEnterAlternateIdentifierSubtask":
		return map[string]any{"enter_text": map[string]any{"text": acc.Username, "link": next}}, nil

	case "LoginTwoFactorAuthChallenge":
		if acc.TOTPSecret == "" {
			return nil, fmt.Errorf("2FA required but no TOTP secret for %s", acc.Username)
		}
		code, err := totp.GenerateCode(acc.TOTPSecret, time.Now())
		if err != nil {
			return nil, fmt.Errorf("TOTP code generation failed for %s: %w", acc.Username, err)
		}
		slog.Info("submitting TOTP code", slog.String("user", acc.Username))
		return map[string]any{"enter_text": map[string]any{"text": code, "link": next}}, nil

	case "LoginArkoseChallenge", "LoginArkoseCaptcha", "LoginEnterRecaptcha":
		if c.cfg.CaptchaSolver == nil {
			return nil, fmt.Errorf("CAPTCHA required but no solver configured for %s", acc.Username)
		}
		token, err := c.cfg.CaptchaSolver.Solve(ctx, arkosePublicKey, "https://twitter.com")
		if err != nil {
			return nil, fmt.Errorf("CAPTCHA solve failed for %s: %w", acc.Username, err)
		}
		slog.Info("CAPTCHA solved for login", slog.String("user", acc.Username))
		return map[string]any{"web_modal": map[string]any{
			"completion_deeplink": "twitter://onboarding/web_modal/next_link?access_token=" + token,
		}}, nil

	default:
		slog.Warn("unknown login subtask, skipping", slog.String("user", acc.Username), slog.String("subtask", subtaskID))
		return map[string]any{"action_list": map[string]any{"link": next}}, nil
	}
}

// Logout invalidates the auth_token of every logged-in account and forgets
// its persisted session. Accounts are cleared even when the request fails.
func (c *Client) Logout(ctx context.Context) error {
	var errs []error
	for _, acc := range c.accounts {
		if !acc.LoggedIn() {
			continue
		}
		if _, err := c.doPOST(ctx, acc, opLogout, logoutURL, nil); err != nil {
			errs = append(errs, fmt.Errorf("logout %s: %w", acc.Username, err))
		}
		acc.SetCredentials("", "")
		if err := removeSession(c.cfg.SessionDir, acc.Username); err != nil {
			errs = append(errs, fmt.Errorf("remove session %s: %w", acc.Username, err))
		}
		slog.Info("logged out", slog.String("user", acc.Username))
	}
	return errors.Join(errs...)
}

// cookieValue reads a cookie from either Twitter origin.
func cookieValue(client *stealth.BrowserClient, name string) string {
	if v := client.GetCookieValue("https://api.twitter.com", name); v != "" {
		return v
	}
	return client.GetCookieValue("https://twitter.com", name)
}

// getGuestToken fetches a Twitter guest token.
func (c *Client) getGuestToken(client *stealth.BrowserClient) (string, error) {
	headers := map[string]string{
		"authorization": "Bearer " + BearerToken,
		"content-type":  "application/json",
		"user-agent":    defaultUserAgent,
	}
	body, _, status, err := client.DoWithHeaderOrder("POST", guestActivateURL, headers, nil, twitterHeaderOrder)
	if err != nil {
		return "", err
	}
	if status != 200 {
		return "", fmt.Errorf("guest token: HTTP %d", status)
	}
	var resp struct {
		GuestToken string `json:"guest_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if resp.GuestToken == "" {
		return "", fmt.Errorf("empty guest token in response")
	}
	return resp.GuestToken, nil
}

// acquireGuestToken fetches a fresh guest token with exponential backoff.
func (c *Client) acquireGuestToken(ctx context.Context, client *stealth.BrowserClient) (string, error) {
	backoff := stealth.BackoffConfig{
		InitialWait: 2 * time.Second,
		MaxWait:     60 * time.Second,
		Multiplier:  2.0,
		JitterPct:   0.3,
	}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff.Duration(attempt)):
			}
		}
		token, err := c.getGuestToken(client)
		if err == nil {
			return token, nil
		}
		lastErr = err
		slog.Warn("guest token acquisition failed", slog.Int("attempt", attempt+1), slog.Any("error", err))
	}
	return "", fmt.Errorf("acquire guest token after 3 attempts: %w", lastErr)
}

// loginFlowInit is the subtask_versions body for flow_name=login.
const loginFlowInit = `{"input_flow_data":{"flow_context":{"debug_overrides":{},"start_location":{"location":"splash_screen"}}},"subtask_versions":{"action_list":2,"alert_dialog":1,"app_download_cta":1,"check_logged_in_account":1,"choice_selection":3,"contacts_live_sync_permission_prompt":0,"cta":7,"email_verification":2,"end_flow":1,"enter_date":1,"enter_email":2,"enter_password":5,"enter_phone":2,"enter_recaptcha":1,"enter_text":5,"enter_username":2,"generic_urt":3,"in_app_notification":1,"interest_picker":3,"js_instrumentation":1,"menu_dialog":1,"notifications_permission_prompt":2,"open_account":2,"open_home_timeline":1,"open_link":1,"phone_verification":4,"privacy_options":1,"security_key":3,"select_avatar":4,"select_banner":2,"settings_list":7,"show_code":1,"sign_up":2,"sign_up_review":4,"tweet_selection_urt":1,"update_users":1,"upload_media":1,"user_recommendations_list":4,"user_recommendations_urt":1,"wait_spinner":3,"web_modal":1}}`

type flowResponse struct {
	FlowToken string        `json:"flow_token"`
	Subtasks  []flowSubtask `json:"subtasks"`
}

type flowSubtask struct {
	SubtaskID string `json:"subtask_id"`
}

// loginFlow posts onboarding steps with a fixed client and guest token.
type loginFlow struct {
	client     *stealth.BrowserClient
	guestToken string
}

func (f *loginFlow) start() (*flowResponse, error) {
	return f.post(onboardingURL+"?flow_name=login", loginFlowInit)
}

func (f *loginFlow) submit(flowToken, subtaskID string, input map[string]any) (*flowResponse, error) {
	entry := map[string]any{"subtask_id": subtaskID}
	for k, v := range input {
		entry[k] = v
	}
	payload, err := json.Marshal(map[string]any{
		"flow_token":     flowToken,
		"subtask_inputs": []any{entry},
	})
	if err != nil {
		return nil, fmt.Errorf("encode subtask %s: %w", subtaskID, err)
	}
	return f.post(onboardingURL, string(payload))
}

func (f *loginFlow) post(url, payload string) (*flowResponse, error) {
	body, _, status, err := f.client.DoWithHeaderOrder("POST", url,
		loginFlowHeaders(f.guestToken, ""),
		strings.NewReader(payload),
		twitterHeaderOrder,
	)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, fmt.Errorf("flow step HTTP %d: %s", status, truncateBytes(body, 300))
	}
	return parseFlowResponse(body)
}

func parseFlowResponse(body []byte) (*flowResponse, error) {
	var fr flowResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, fmt.Errorf("parse flow response: %w", err)
	}
	if fr.FlowToken == "" {
		return nil, fmt.Errorf("empty flow_token in response: %s", truncateBytes(body, 200))
	}
	return &fr, nil
}
