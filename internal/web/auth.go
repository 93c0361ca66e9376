package web

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/andreasstove999/urbandrive/web-go/internal/apperr"
	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
)

type loginView struct {
	Page
	ReturnURL string
	Email     string
}

type registerView struct {
	Page
	Form rental.Registration
}

// localPath keeps returnUrl on this site. Anything absolute or
// protocol-relative falls back to def.
func localPath(raw, def string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return def
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return def
	}
	return raw
}

func (h *handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	v := loginView{
		Page:      h.page(r, "Iniciar sesión"),
		ReturnURL: localPath(r.URL.Query().Get("returnUrl"), ""),
	}
	if v.ReturnURL != "" {
		v.Message = "Inicia sesión para continuar."
	}
	h.render.render(w, http.StatusOK, "login.html", v)
}

func (h *handler) Login(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("contrasena")
	v := loginView{
		Page:      h.page(r, "Iniciar sesión"),
		ReturnURL: localPath(r.FormValue("returnUrl"), ""),
		Email:     email,
	}

	if email == "" || password == "" {
		v.Error = "Ingresa tu correo y contraseña."
		h.render.render(w, http.StatusBadRequest, "login.html", v)
		return
	}

	u, err := h.accounts.Login(r.Context(), email, password)
	if err != nil {
		h.reqLog(r).WithError(err).Error("login")
		v.Error = "No se pudo iniciar sesión. Intenta nuevamente."
		h.render.render(w, http.StatusBadGateway, "login.html", v)
		return
	}
	if u == nil {
		v.Error = "Correo o contraseña incorrectos."
		h.render.render(w, http.StatusUnauthorized, "login.html", v)
		return
	}

	if err := h.sessions.Login(r.Context(), *u); err != nil {
		h.reqLog(r).WithError(err).Error("start session")
		v.Error = "No se pudo iniciar sesión. Intenta nuevamente."
		h.render.render(w, http.StatusInternalServerError, "login.html", v)
		return
	}
	http.Redirect(w, r, localPath(v.ReturnURL, "/vehiculos"), http.StatusSeeOther)
}

func (h *handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context()); err != nil {
		h.reqLog(r).WithError(err).Warn("destroy session")
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render.render(w, http.StatusOK, "registro.html", registerView{
		Page: h.page(r, "Crear cuenta"),
		Form: rental.Registration{IDType: "Cedula"},
	})
}

func (h *handler) Register(w http.ResponseWriter, r *http.Request) {
	age, _ := strconv.Atoi(strings.TrimSpace(r.FormValue("edad")))
	form := rental.Registration{
		FirstName:  strings.TrimSpace(r.FormValue("nombre")),
		LastName:   strings.TrimSpace(r.FormValue("apellido")),
		Email:      strings.TrimSpace(r.FormValue("email")),
		Password:   r.FormValue("contrasena"),
		Address:    strings.TrimSpace(r.FormValue("direccion")),
		Country:    strings.TrimSpace(r.FormValue("pais")),
		Age:        age,
		IDType:     strings.TrimSpace(r.FormValue("tipoIdentificacion")),
		NationalID: strings.TrimSpace(r.FormValue("identificacion")),
	}
	v := registerView{Page: h.page(r, "Crear cuenta"), Form: form}
	v.Form.Password = ""

	if form.FirstName == "" || form.Email == "" || form.Password == "" {
		v.Error = "Nombre, correo y contraseña son obligatorios."
		h.render.render(w, http.StatusBadRequest, "registro.html", v)
		return
	}

	u, err := h.accounts.Register(r.Context(), form)
	if err != nil {
		h.reqLog(r).WithField("email", form.Email).WithError(err).Warn("registration failed")
		v.Error, _ = apperr.Registration.Message(err)
		status := http.StatusBadGateway
		if apperr.Is(err, apperr.KindDomainRejected) {
			status = http.StatusUnprocessableEntity
		}
		h.render.render(w, status, "registro.html", v)
		return
	}

	if err := h.sessions.Login(r.Context(), *u); err != nil {
		h.reqLog(r).WithError(err).Error("start session")
	}
	http.Redirect(w, r, "/vehiculos", http.StatusSeeOther)
}
