package main

import (
	"encoding/json"
	"errors"
	"flag"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/gorilla/mux"
	"github.com/mastercactapus/svgrbl/gcode"
	"github.com/mastercactapus/svgrbl/job"
	"github.com/mastercactapus/svgrbl/machine/grbl"
	"github.com/mitchellh/go-homedir"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cf := addConfigFlags(fs)
	addr := fs.String("addr", ":9091", "Address to bind the server to.")
	dir := fs.String("dir", "./data", "Data directory to use.")
	fs.Parse(args)

	cfg, err := cf.load(fs)
	if err != nil {
		return err
	}
	dataDir, err := homedir.Expand(*dir)
	if err != nil {
		return err
	}

	gcfg, release := streamerConfig(cfg.Serial)
	defer release()
	gcfg.Logger = log.New(os.Stderr, "grbl: ", log.Ltime)

	a := newAPI(cfg, gcfg, dataDir)
	log.Println("Listening on", *addr)
	return http.ListenAndServe(*addr, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		log.Printf("%s %s - %s", req.Method, req.URL.Path, req.RemoteAddr)
		a.ServeHTTP(w, req)
	}))
}

type api struct {
	http.Handler

	dataDir string
	sse     *sse.Server
	s       *grbl.Streamer

	mx  sync.Mutex
	cfg job.Config
}

type statusResponse struct {
	State  grbl.State        `json:"state"`
	Cursor int               `json:"cursor"`
	Total  int               `json:"total"`
	Error  *grbl.StreamError `json:"error,omitempty"`

	Machine *grbl.Status `json:"machine,omitempty"`
}

func newAPI(cfg job.Config, gcfg grbl.Config, dir string) *api {
	r := mux.NewRouter()
	events := make(grbl.EventChan, 100)
	gcfg.Observers = append(gcfg.Observers, events)

	a := &api{
		Handler: r,
		dataDir: dir,
		cfg:     cfg,
		s:       grbl.NewStreamer(nil, gcfg),
		sse: sse.NewServer(&sse.Options{
			Logger: log.New(ioutil.Discard, "", 0),
		}),
	}

	fs := http.FileServer(http.Dir(dir))
	r.PathPrefix("/data/").Handler(http.StripPrefix("/data", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case "GET":
			fs.ServeHTTP(w, req)
		case "PUT":
			a.putFile(w, req)
		case "DELETE":
			a.deleteFile(w, req)
		default:
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	})))

	r.HandleFunc("/api/convert", a.convert).Methods("POST")
	r.HandleFunc("/api/job", a.getJob).Methods("GET")
	r.HandleFunc("/api/job", a.putJob).Methods("PUT")
	r.HandleFunc("/api/stream/{action}", a.control).Methods("POST")
	r.HandleFunc("/api/status", a.status).Methods("GET")

	r.PathPrefix("/events/").Handler(a.sse)
	go func() {
		for e := range events {
			data, err := json.Marshal(e)
			if err != nil {
				log.Printf("ERROR: marshal json: %+v", err)
				continue
			}
			a.sse.SendMessage("/events/stream", sse.SimpleMessage(string(data)))
		}
	}()

	return a
}

func safePath(base, name string) (bool, string) {
	if filepath.Separator != '/' && strings.ContainsRune(name, filepath.Separator) {
		log.Println("invalid path '" + name + "'")
		return false, ""
	}
	dir := base
	if dir == "" {
		dir = "."
	}
	fullName := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+name)))
	return true, fullName
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		log.Println("ERROR: encode:", err)
	}
}

func writeLines(w http.ResponseWriter, lines []string) {
	w.Header().Set("Content-Type", "text/plain")
	err := job.Write(w, lines)
	if err != nil {
		log.Println("ERROR: write:", err)
	}
}

// convert turns the SVG request body into a job. With load=1 the job also
// replaces the streamer's, and with save=NAME it is stored in the data
// directory.
func (a *api) convert(w http.ResponseWriter, req *http.Request) {
	a.mx.Lock()
	cfg := a.cfg
	a.mx.Unlock()

	if res := req.FormValue("resolution"); res != "" {
		var err error
		cfg.Resolution, err = strconv.ParseFloat(res, 64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	lines, err := job.FromSVG(req.Body, cfg)
	if err != nil {
		log.Println("ERROR: convert:", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if name := req.FormValue("save"); name != "" {
		ok, fullName := safePath(a.dataDir, name)
		if !ok {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		err = job.WriteFile(fullName, lines)
		if err != nil {
			log.Printf("ERROR: save '%s': %+v", fullName, err)
			http.Error(w, err.Error(), 500)
			return
		}
	}

	if req.FormValue("load") == "1" {
		err = a.s.Load(lines)
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
	}

	writeLines(w, lines)
}

func (a *api) getJob(w http.ResponseWriter, req *http.Request) {
	writeLines(w, a.s.Lines())
}

func (a *api) putJob(w http.ResponseWriter, req *http.Request) {
	lines, err := job.Read(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	_, err = gcode.Measure(lines)
	if err != nil {
		log.Println("WARN: job may not be supported:", err)
	}
	err = a.s.Load(lines)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) control(w http.ResponseWriter, req *http.Request) {
	var err error
	switch mux.Vars(req)["action"] {
	case "start":
		err = a.s.Start()
	case "pause":
		err = a.s.Pause()
	case "resume":
		err = a.s.Resume()
	case "abort":
		err = a.s.Abort()
	default:
		http.NotFound(w, req)
		return
	}

	var se *grbl.StreamError
	switch {
	case err == nil:
		a.status(w, req)
	case err == grbl.ErrBusy, err == grbl.ErrNotSending, err == grbl.ErrNotPaused:
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &se):
		log.Println("ERROR: stream:", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(se)
	default:
		log.Println("ERROR: stream:", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

func (a *api) status(w http.ResponseWriter, req *http.Request) {
	res := statusResponse{
		State:  a.s.State(),
		Cursor: a.s.Cursor(),
		Total:  len(a.s.Lines()),
		Error:  a.s.LastError(),
	}
	if st, ok := a.s.Status(); ok {
		res.Machine = &st
	}
	writeJSON(w, res)
}

func (a *api) putFile(w http.ResponseWriter, req *http.Request) {
	ok, name := safePath(a.dataDir, req.URL.Path)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	os.MkdirAll(filepath.Dir(name), 0755)
	f, err := os.Create(name)
	if err != nil {
		log.Printf("ERROR: create '%s': %+v", name, err)
		http.Error(w, err.Error(), 500)
		return
	}
	defer f.Close()
	_, err = io.Copy(f, req.Body)
	if err != nil {
		log.Printf("ERROR: write '%s': %+v", name, err)
		http.Error(w, err.Error(), 500)
		return
	}
}

func (a *api) deleteFile(w http.ResponseWriter, req *http.Request) {
	ok, name := safePath(a.dataDir, req.URL.Path)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	err := os.Remove(name)
	if err != nil {
		log.Printf("ERROR: delete '%s': %+v", name, err)
		http.Error(w, err.Error(), 500)
		return
	}
}
