package aggregate

import (
	"sort"

	"github.com/petersawicki/seo-log-analyzer/internal/model"
)

// hourBucketLayout keys the activity histogram by (date, hour) in the
// record's own declared offset. No timezone normalization is applied
// beyond what the source timestamp carries.
const hourBucketLayout = "2006-01-02 15"

// familyStats accumulates the crawl budget of one agent family.
type familyStats struct {
	requests      int64
	bytes         int64
	errors        int64
	statusClasses model.StatusClassCounts
}

// urlStats accumulates activity for one request path.
type urlStats struct {
	count        int64
	botCount     int64
	statusCounts map[int]int64

	// botErrorCounts tracks 4xx/5xx responses served to bot families,
	// keyed by status code. Feeds the error-pages view.
	botErrorCounts map[int]int64

	responseTimes *RunningStats
}

// hourStats accumulates one (date, hour) bucket.
type hourStats struct {
	total    int64
	byFamily map[model.BotFamily]int64
}

// State is the mutable accumulator of one analysis run (or one chunk
// of a partitioned run). It is not safe for concurrent use; partition
// work across separate States and combine them with Merge.
type State struct {
	records int64
	bots    int64
	bytes   int64

	byFamily map[model.BotFamily]*familyStats
	byURL    map[string]*urlStats
	byHour   map[string]*hourStats

	googlebot model.GooglebotSplit
}

// NewState returns an empty accumulator.
func NewState() *State {
	return &State{
		byFamily: make(map[model.BotFamily]*familyStats),
		byURL:    make(map[string]*urlStats),
		byHour:   make(map[string]*hourStats),
	}
}

// Update folds one enriched record into the state.
func (s *State) Update(record model.LogRecord, identity model.AgentIdentity) {
	s.records++
	s.bytes += record.ResponseBytes

	isBot := identity.Family.IsBot()
	if isBot {
		s.bots++
	}

	fam := s.byFamily[identity.Family]
	if fam == nil {
		fam = &familyStats{}
		s.byFamily[identity.Family] = fam
	}
	fam.requests++
	fam.bytes += record.ResponseBytes
	fam.statusClasses.Add(record.StatusCode)
	if record.IsError() {
		fam.errors++
	}

	url := s.byURL[record.Path]
	if url == nil {
		url = &urlStats{
			statusCounts:   make(map[int]int64),
			botErrorCounts: make(map[int]int64),
			responseTimes:  NewRunningStats(),
		}
		s.byURL[record.Path] = url
	}
	url.count++
	url.statusCounts[record.StatusCode]++
	if isBot {
		url.botCount++
		if record.IsError() {
			url.botErrorCounts[record.StatusCode]++
		}
	}
	if record.HasResponseTime {
		url.responseTimes.Observe(record.ResponseTimeMs)
	}

	// Bucketing is keyed by the record's own timestamp, never by
	// stream position: sources are not required to be sorted.
	bucket := record.Timestamp.Format(hourBucketLayout)
	hour := s.byHour[bucket]
	if hour == nil {
		hour = &hourStats{byFamily: make(map[model.BotFamily]int64)}
		s.byHour[bucket] = hour
	}
	hour.total++
	hour.byFamily[identity.Family]++

	if identity.Family == model.FamilyGooglebot {
		switch identity.DeviceClass {
		case model.DeviceDesktop:
			s.googlebot.Desktop++
		case model.DeviceMobile:
			s.googlebot.Mobile++
		case model.DeviceUnspecified:
			// Counted apart, never folded into either side.
			s.googlebot.Unspecified++
		}
	}
}

// Merge combines another state into s. Merging is commutative and
// associative. Nothing from the other state is aliased, so it stays
// usable (and any summary finalized from it stays intact) afterwards.
func (s *State) Merge(other *State) {
	if other == nil {
		return
	}

	s.records += other.records
	s.bots += other.bots
	s.bytes += other.bytes

	for family, theirs := range other.byFamily {
		ours := s.byFamily[family]
		if ours == nil {
			ours = &familyStats{}
			s.byFamily[family] = ours
		}
		ours.requests += theirs.requests
		ours.bytes += theirs.bytes
		ours.errors += theirs.errors
		ours.statusClasses.Merge(theirs.statusClasses)
	}

	for path, theirs := range other.byURL {
		ours := s.byURL[path]
		if ours == nil {
			ours = &urlStats{
				statusCounts:   make(map[int]int64, len(theirs.statusCounts)),
				botErrorCounts: make(map[int]int64, len(theirs.botErrorCounts)),
				responseTimes:  NewRunningStats(),
			}
			s.byURL[path] = ours
		}
		ours.count += theirs.count
		ours.botCount += theirs.botCount
		for status, n := range theirs.statusCounts {
			ours.statusCounts[status] += n
		}
		for status, n := range theirs.botErrorCounts {
			ours.botErrorCounts[status] += n
		}
		ours.responseTimes.Merge(theirs.responseTimes)
	}

	for bucket, theirs := range other.byHour {
		ours := s.byHour[bucket]
		if ours == nil {
			ours = &hourStats{byFamily: make(map[model.BotFamily]int64, len(theirs.byFamily))}
			s.byHour[bucket] = ours
		}
		ours.total += theirs.total
		for family, n := range theirs.byFamily {
			ours.byFamily[family] += n
		}
	}

	s.googlebot.Desktop += other.googlebot.Desktop
	s.googlebot.Mobile += other.googlebot.Mobile
	s.googlebot.Unspecified += other.googlebot.Unspecified
}

// RecordCount returns the number of folded records.
func (s *State) RecordCount() int64 {
	return s.records
}

// CrawlCounts returns the per-URL crawl counts the trap detector
// works from: bot requests when the run saw any identified bot
// traffic, otherwise all requests so anonymized or bot-less sources
// still get trap analysis.
func (s *State) CrawlCounts() map[string]int64 {
	counts := make(map[string]int64, len(s.byURL))
	if s.bots > 0 {
		for path, url := range s.byURL {
			if url.botCount > 0 {
				counts[path] = url.botCount
			}
		}
		return counts
	}
	for path, url := range s.byURL {
		counts[path] = url.count
	}
	return counts
}

// Options configure Finalize's derived views.
type Options struct {
	topURLLimit         int
	errorPageLimit      int
	slowPageThresholdMs float64
}

// Option configures Finalize.
type Option func(*Options)

// WithTopURLLimit caps the top-URLs view.
func WithTopURLLimit(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.topURLLimit = n
		}
	}
}

// WithErrorPageLimit caps the error-pages view.
func WithErrorPageLimit(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.errorPageLimit = n
		}
	}
}

// WithSlowPageThreshold sets the mean response time, in milliseconds,
// above which a URL is listed as a slow page.
func WithSlowPageThreshold(ms float64) Option {
	return func(o *Options) {
		if ms > 0 {
			o.slowPageThresholdMs = ms
		}
	}
}

const (
	defaultTopURLLimit         = 20
	defaultErrorPageLimit      = 20
	defaultSlowPageThresholdMs = 1000
)

// Finalize produces the read-only derived views from the accumulated
// state. Only aggregation fields are populated; parse diagnostics and
// trap findings belong to the pipeline. The output is deterministic:
// every view has a total order with explicit tie-breaks.
func (s *State) Finalize(opts ...Option) *model.AnalysisSummary {
	options := &Options{
		topURLLimit:         defaultTopURLLimit,
		errorPageLimit:      defaultErrorPageLimit,
		slowPageThresholdMs: defaultSlowPageThresholdMs,
	}
	for _, opt := range opts {
		opt(options)
	}

	summary := &model.AnalysisSummary{
		TotalRequests: s.records,
		BotRequests:   s.bots,
		TotalBytes:    s.bytes,
		Googlebot:     s.googlebot,
	}
	if s.records > 0 {
		summary.BotSharePercent = percent(s.bots, s.records)
	}

	summary.Families = s.familyBudgets()
	summary.TopURLs = s.topURLs(options.topURLLimit)
	summary.SlowPages = s.slowPages(options.slowPageThresholdMs)
	summary.ErrorPages = s.errorPages(options.errorPageLimit)
	summary.Hourly = s.hourly()

	return summary
}

func (s *State) familyBudgets() []model.FamilyBudget {
	budgets := make([]model.FamilyBudget, 0, len(s.byFamily))
	for family, stats := range s.byFamily {
		budget := model.FamilyBudget{
			Family:        family,
			Requests:      stats.requests,
			Bytes:         stats.bytes,
			Errors:        stats.errors,
			StatusClasses: stats.statusClasses,
		}
		if stats.requests > 0 {
			budget.ErrorRatePercent = percent(stats.errors, stats.requests)
		}
		if s.records > 0 {
			budget.SharePercent = percent(stats.requests, s.records)
		}
		budgets = append(budgets, budget)
	}

	sort.Slice(budgets, func(i, j int) bool {
		if budgets[i].Requests != budgets[j].Requests {
			return budgets[i].Requests > budgets[j].Requests
		}
		return budgets[i].Family < budgets[j].Family
	})
	return budgets
}

func (s *State) topURLs(limit int) []model.URLActivity {
	urls := make([]model.URLActivity, 0, len(s.byURL))
	for path, stats := range s.byURL {
		activity := model.URLActivity{
			URL:          path,
			Count:        stats.count,
			BotCount:     stats.botCount,
			StatusCounts: stats.statusCounts,
		}
		if stats.count > 0 {
			activity.BotSharePercent = percent(stats.botCount, stats.count)
		}
		if stats.responseTimes.Count() > 0 {
			activity.HasResponseTime = true
			activity.MeanResponseMs = stats.responseTimes.Mean()
			activity.P95ResponseMs = stats.responseTimes.P95()
			activity.MaxResponseMs = stats.responseTimes.Max()
		}
		urls = append(urls, activity)
	}

	sort.Slice(urls, func(i, j int) bool {
		if urls[i].Count != urls[j].Count {
			return urls[i].Count > urls[j].Count
		}
		return urls[i].URL < urls[j].URL
	})

	if len(urls) > limit {
		urls = urls[:limit]
	}
	return urls
}

func (s *State) slowPages(thresholdMs float64) []model.SlowPage {
	var pages []model.SlowPage
	for path, stats := range s.byURL {
		rt := stats.responseTimes
		if rt.Count() == 0 || rt.Mean() <= thresholdMs {
			continue
		}
		pages = append(pages, model.SlowPage{
			URL:            path,
			Count:          rt.Count(),
			MeanResponseMs: rt.Mean(),
			P95ResponseMs:  rt.P95(),
			MaxResponseMs:  rt.Max(),
		})
	}

	sort.Slice(pages, func(i, j int) bool {
		if pages[i].MeanResponseMs != pages[j].MeanResponseMs {
			return pages[i].MeanResponseMs > pages[j].MeanResponseMs
		}
		return pages[i].URL < pages[j].URL
	})
	return pages
}

func (s *State) errorPages(limit int) []model.ErrorPage {
	var pages []model.ErrorPage
	for path, stats := range s.byURL {
		if len(stats.botErrorCounts) == 0 {
			continue
		}
		var total int64
		for _, n := range stats.botErrorCounts {
			total += n
		}
		pages = append(pages, model.ErrorPage{
			URL:          path,
			ErrorCount:   total,
			StatusCounts: stats.botErrorCounts,
		})
	}

	sort.Slice(pages, func(i, j int) bool {
		if pages[i].ErrorCount != pages[j].ErrorCount {
			return pages[i].ErrorCount > pages[j].ErrorCount
		}
		return pages[i].URL < pages[j].URL
	})

	if len(pages) > limit {
		pages = pages[:limit]
	}
	return pages
}

func (s *State) hourly() []model.HourActivity {
	hours := make([]model.HourActivity, 0, len(s.byHour))
	for bucket, stats := range s.byHour {
		hours = append(hours, model.HourActivity{
			Bucket:   bucket,
			Total:    stats.total,
			ByFamily: stats.byFamily,
		})
	}
	sort.Slice(hours, func(i, j int) bool {
		return hours[i].Bucket < hours[j].Bucket
	})
	return hours
}

func percent(part, whole int64) float64 {
	return float64(part) / float64(whole) * 100
}
