package main

import (
	"net/http"
	"strings"
)

func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
		if !emailPattern.MatchString(email) {
			executeTemplate(w, "login.html", LoginPageData{
				Title: "Sign in - Bookbox",
				Error: "Enter a valid email address.",
			})
			return
		}

		session, _ := store.Get(r, sessionName)
		session.Values["email"] = email
		if err := session.Save(r, w); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	executeTemplate(w, "login.html", LoginPageData{Title: "Sign in - Bookbox"})
}

func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, _ := store.Get(r, sessionName)
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1
	session.Save(r, w)
	http.Redirect(w, r, "/login", http.StatusFound)
}
