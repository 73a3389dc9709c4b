// Package monitoring serves the progress and counters of a running
// simulation over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/csim/mem/cache"
	"github.com/sarchlab/csim/monitoring/web"
	"github.com/sarchlab/csim/sim"
)

// CacheSnapshot is a copy of the state of a cache, taken by the goroutine
// that runs it.
type CacheSnapshot struct {
	Name        string            `json:"name"`
	Config      cache.Config      `json:"config"`
	Performance cache.Performance `json:"performance"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Monitor can turn a simulation into a server that reports how the
// simulation goes. The server only reads what the simulation publishes.
type Monitor struct {
	portNumber      int
	profileDuration time.Duration
	idGenerator     sim.IDGenerator

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	cachesLock sync.Mutex
	caches     []CacheSnapshot

	settings any
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		profileDuration: time.Second,
		idGenerator:     sim.NewUniqueIDGenerator(),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterSettings sets the value served under /api/config. It must be
// called before the server starts.
func (m *Monitor) RegisterSettings(settings any) {
	m.settings = settings
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        m.idGenerator.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// PublishCache replaces the snapshot that has the same name, or adds it.
func (m *Monitor) PublishCache(snapshot CacheSnapshot) {
	m.cachesLock.Lock()
	defer m.cachesLock.Unlock()

	for i := range m.caches {
		if m.caches[i].Name == snapshot.Name {
			m.caches[i] = snapshot
			return
		}
	}

	m.caches = append(m.caches, snapshot)
}

func (m *Monitor) findCache(name string) (CacheSnapshot, bool) {
	m.cachesLock.Lock()
	defer m.cachesLock.Unlock()

	for _, c := range m.caches {
		if c.Name == name {
			return c, true
		}
	}

	return CacheSnapshot{}, false
}

// Handler returns the routes of the monitoring server.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	fServer := http.FileServer(web.GetAssets())
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/caches", m.listCaches)
	r.HandleFunc("/api/cache/{name}", m.cacheDetails)
	r.HandleFunc("/api/field/{name}", m.cacheFieldValue)
	r.HandleFunc("/api/config", m.showSettings)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(fServer)

	return r
}

// StartServer starts the monitor as a web server and returns its address.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	handler := m.Handler()

	go func() {
		err := http.Serve(listener, handler)
		dieOnErr(err)
	}()

	return url
}

// OpenInBrowser shows the page at url in the default browser.
func OpenInBrowser(url string) error {
	return browser.OpenURL(url)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	views := make([]progressBarView, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		views = append(views, b.view())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, views)
}

func (m *Monitor) listCaches(w http.ResponseWriter, _ *http.Request) {
	m.cachesLock.Lock()
	caches := make([]CacheSnapshot, len(m.caches))
	copy(caches, m.caches)
	m.cachesLock.Unlock()

	writeJSON(w, caches)
}

func (m *Monitor) cacheDetails(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := m.findCacheOr404(w, mux.Vars(r)["name"])
	if !ok {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&snapshot)
	serializer.SetMaxDepth(2)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

// cacheFieldValue serializes one field of a cache, selected with a dotted
// path in the `field` query parameter, such as `Performance.Hits`.
func (m *Monitor) cacheFieldValue(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := m.findCacheOr404(w, mux.Vars(r)["name"])
	if !ok {
		return
	}

	fieldName := r.URL.Query().Get("field")
	if fieldName == "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "Error: missing field parameter")

		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&snapshot)
	serializer.SetMaxDepth(1)

	err := serializer.SetEntryPoint(strings.Split(fieldName, "."))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) findCacheOr404(
	w http.ResponseWriter,
	name string,
) (CacheSnapshot, bool) {
	snapshot, ok := m.findCache(name)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Cache not found"))
		dieOnErr(err)
	}

	return snapshot, ok
}

func (m *Monitor) showSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.settings)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
