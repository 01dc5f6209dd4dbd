package main

import (
	"html/template"
	"net/http"

	"github.com/gorilla/mux"
)

// entryHandler serves the front-end entry document for / and /{username}.
// The page is a minimal built-in client; a compiled front-end application
// would be mounted here instead.
type entryHandler struct {
}

func (entryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	entryTemplate.Execute(w, entryArgs{Username: username})
}

type entryArgs struct {
	Username string
}

var entryTemplate = template.Must(template.New("entryTemplate").Parse(`
<html>
<head>
<title>Cosmic Messenger</title>
<script type="text/javascript">
    window.onload = function () {

    var conn;
    var log = document.getElementById("log");

    function appendLog(text) {
        var div = document.createElement("div");
        div.textContent = text;
        var doScroll = log.scrollTop == log.scrollHeight - log.clientHeight;
        log.appendChild(div);
        if (doScroll) {
            log.scrollTop = log.scrollHeight - log.clientHeight;
        }
    }

    function emit(event, data) {
        if (!conn) {
            return;
        }
        conn.send(JSON.stringify({event: event, data: data}));
    }

    document.getElementById("form").onsubmit = function () {
        var msg = document.getElementById("msg");
        if (!conn || !msg.value) {
            return false;
        }
        emit("message", {text: msg.value, user: "{{.Username}}"});
        msg.value = "";
        return false;
    };

    if (window["WebSocket"]) {
        conn = new WebSocket("ws://" + location.host + "/socket");
        conn.onopen = function () {
            {{if .Username}}emit("register", {title: "{{.Username}}"});{{end}}
        };
        conn.onclose = function () {
            appendLog("Connection closed.");
        };
        conn.onmessage = function (evt) {
            appendLog(evt.data);
        };
    } else {
        appendLog("Your browser does not support WebSockets.");
    }
    };
</script>
<style type="text/css">
html {
    overflow: hidden;
}

body {
    overflow: hidden;
    padding: 0.5em;
    margin: 0;
    width: 100%;
    height: 100%;
    background: gray;
}

#log {
    background: white;
    margin: 0;
    padding: 0.5em;
    position: absolute;
    top: 2.0em;
    left: 0.5em;
    right: 0.5em;
    bottom: 3em;
    overflow: auto;
}

#form {
    padding: 0 0.5em;
    margin: 0;
    position: absolute;
    bottom: 0.5em;
    left: 0px;
    width: 100%;
    overflow: hidden;
}
</style>
</head>
<body>
<h3>Cosmic Messenger{{if .Username}} &mdash; {{.Username}}{{end}}</h3>
<div id="log"></div>
<form id="form">
    <input type="submit" value="Send" />
    <input type="text" id="msg" size="64"/>
</form>
</body>
</html>
`))
