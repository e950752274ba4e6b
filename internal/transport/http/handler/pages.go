package handler

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-otp-gate/internal/config"
	"github.com/go-otp-gate/internal/pkg/refurl"
	"github.com/go-otp-gate/internal/transport/http/middleware"
)

// PageHandler renders the verification form and the two plain pages the
// gate redirects between. Presentation only; all behaviour lives in the
// OTP endpoints and the gate middleware.
type PageHandler struct {
	gate      config.GateConfig
	countdown int
	form      *template.Template
	plain     *template.Template
}

func NewPageHandler(gate config.GateConfig, countdownSeconds int) *PageHandler {
	return &PageHandler{
		gate:      gate,
		countdown: countdownSeconds,
		form:      template.Must(template.New("otp-form").Parse(otpFormTmpl)),
		plain:     template.Must(template.New("plain").Parse(plainPageTmpl)),
	}
}

type otpFormData struct {
	UserID      string
	Destination string
	Countdown   int
}

// VerifyOTP renders the embeddable verification form. The user id defaults
// to the current session's user; ref_url is resolved server-side into the
// post-verification landing destination, falling back to the account page.
func (h *PageHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
			userID = claims.UserID
		}
	}
	data := otpFormData{
		UserID:      userID,
		Destination: refurl.Resolve(r.URL.Query().Get("ref_url"), h.gate.PlanParam, h.gate.AccountPath),
		Countdown:   h.countdown,
	}
	h.render(w, h.form, data)
}

func (h *PageHandler) Account(w http.ResponseWriter, _ *http.Request) {
	h.render(w, h.plain, map[string]string{"Title": "My Account", "Body": "Welcome back."})
}

func (h *PageHandler) Login(w http.ResponseWriter, _ *http.Request) {
	h.render(w, h.plain, map[string]string{"Title": "Log in or Register", "Body": "Please log in to continue."})
}

func (h *PageHandler) render(w http.ResponseWriter, t *template.Template, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.Execute(w, data); err != nil {
		slog.Error("page render failed", "template", t.Name(), "err", err)
	}
}

const plainPageTmpl = `<!DOCTYPE html>
<html><head><title>{{.Title}}</title></head>
<body><h1>{{.Title}}</h1><p>{{.Body}}</p></body></html>
`

const otpFormTmpl = `<!DOCTYPE html>
<html>
<head><title>Verify OTP</title></head>
<body>
<div class="otp-verification-wrapper">
  <h2>Verify OTP</h2>
  <form id="otp-verification-form" method="post" autocomplete="off">
    <label for="otp_code">Enter the OTP sent to your email:</label>
    <input type="text" name="otp_code" id="otp_code" maxlength="6" required placeholder="6-digit code">
    <input type="hidden" name="user_id" value="{{.UserID}}">
    <button type="submit" id="verify-btn">Verify</button>
    <button type="button" id="resend-otp-btn">Resend OTP</button>
  </form>
  <div id="otp-countdown"></div>
  <div id="otp-verification-message"></div>
</div>
<script>
(function () {
  var form = document.getElementById('otp-verification-form');
  var msg = document.getElementById('otp-verification-message');
  var input = document.getElementById('otp_code');
  var verifyBtn = document.getElementById('verify-btn');
  var resendBtn = document.getElementById('resend-otp-btn');
  var countdownEl = document.getElementById('otp-countdown');
  var remaining, timer;

  // Cosmetic only: expiry is enforced server-side.
  function startCountdown() {
    clearInterval(timer);
    remaining = {{.Countdown}};
    input.disabled = false;
    verifyBtn.disabled = false;
    timer = setInterval(function () {
      remaining--;
      var m = Math.floor(remaining / 60), s = remaining % 60;
      countdownEl.textContent = m + ':' + (s < 10 ? '0' : '') + s;
      if (remaining <= 0) {
        clearInterval(timer);
        countdownEl.textContent = 'Code expired. Use resend to get a new one.';
        input.disabled = true;
        verifyBtn.disabled = true;
      }
    }, 1000);
  }

  function post(action, body, done) {
    fetch('/v1/otp/' + action, {
      method: 'POST',
      headers: { 'Content-Type': 'application/x-www-form-urlencoded' },
      body: body
    }).then(function (r) { return r.json(); }).then(done).catch(function () {
      msg.textContent = 'An error occurred.';
      resendBtn.disabled = false;
      resendBtn.textContent = 'Resend OTP';
    });
  }

  form.addEventListener('submit', function (e) {
    e.preventDefault();
    post('verify',
      'user_id=' + encodeURIComponent(form.user_id.value) +
      '&otp_code=' + encodeURIComponent(input.value),
      function (resp) {
        msg.textContent = resp.message || 'No message';
        if (resp.success) {
          form.style.display = 'none';
          setTimeout(function () { window.location.href = {{.Destination}}; }, 1000);
        }
      });
  });

  resendBtn.addEventListener('click', function () {
    resendBtn.disabled = true;
    resendBtn.textContent = 'Resending...';
    post('resend', 'user_id=' + encodeURIComponent(form.user_id.value), function (resp) {
      msg.textContent = resp.message || 'No message';
      resendBtn.disabled = false;
      resendBtn.textContent = 'Resend OTP';
      if (resp.success) startCountdown();
    });
  });

  startCountdown();
})();
</script>
</body>
</html>
`
