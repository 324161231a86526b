//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eliteGoblin/focusd/winfit/internal/daemon"
	"github.com/eliteGoblin/focusd/winfit/internal/domain"
	"github.com/eliteGoblin/focusd/winfit/internal/infra"
	"github.com/eliteGoblin/focusd/winfit/internal/policy"
	"github.com/eliteGoblin/focusd/winfit/internal/usecase"
	"github.com/eliteGoblin/focusd/winfit/test/fixtures"
)

const pollInterval = 10 * time.Millisecond

var (
	target = policy.DefaultGeometry()
	offset = domain.Geometry{
		Point: domain.Point{X: 200, Y: 150},
		Size:  domain.Size{Width: 800, Height: 600},
	}
)

// agent is the daemon stack wired the way runDaemon wires it, with the
// fake desktop in place of the platform.
type agent struct {
	desktop  *fixtures.FakeDesktop
	store    *infra.EncryptedStore
	settings *usecase.Settings
	cancel   context.CancelFunc
	done     chan error
}

func startAgent(dataDir string, desktop *fixtures.FakeDesktop, launchDelay time.Duration) *agent {
	logger := zap.NewNop()

	store, err := openStore(dataDir)
	Expect(err).NotTo(HaveOccurred())

	settings := usecase.NewSettings(store, nil, logger)
	geometry := policy.NewGeometryPolicy(policy.NewRegistry(), policy.NewIgnoreList())
	reconciler := usecase.NewReconcilerWithVerify(desktop, geometry, logger)

	events := infra.NewPollingEventSource(pollInterval, desktop, desktop.Frontmost, logger)
	controller := daemon.NewController(
		daemon.ControllerConfig{LaunchDelay: launchDelay},
		events,
		reconciler,
		desktop,
		daemon.RealScheduler{},
		logger,
	)

	storeWatcher, err := infra.NewStoreWatcher(dataDir, 10*time.Millisecond, logger)
	Expect(err).NotTo(HaveOccurred())

	watcher := daemon.NewWatcher(
		daemon.WatcherConfig{
			PermissionInterval:     20 * time.Millisecond,
			HeartbeatInterval:      time.Hour,
			PreferenceInterval:     time.Hour,
			LoginItemCheckInterval: time.Hour,
		},
		controller, geometry, settings, store, storeWatcher.Changes(),
		"/usr/local/bin/winfit", os.Getpid(), "integration", logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	a := &agent{
		desktop:  desktop,
		store:    store,
		settings: settings,
		cancel:   cancel,
		done:     make(chan error, 1),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return events.Run(gctx) })
	g.Go(func() error { return storeWatcher.Run(gctx) })
	g.Go(func() error {
		if err := watcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	go func() { a.done <- g.Wait() }()

	return a
}

func openStore(dataDir string) (*infra.EncryptedStore, error) {
	key, err := infra.EnsureKey(infra.NewFileKeyProvider(dataDir), dataDir)
	if err != nil {
		return nil, err
	}
	return infra.NewEncryptedStore(dataDir, key)
}

// waitRunning waits for monitoring, then lets the poller take the sample
// that later activations and launches are compared against.
func (a *agent) waitRunning() {
	Eventually(a.monitoring, time.Second).Should(Equal(domain.Running))
	time.Sleep(5 * pollInterval)
}

func (a *agent) stop() {
	a.cancel()
	Eventually(a.done, 2*time.Second).Should(Receive(BeNil()))
	Expect(a.store.Close()).To(Succeed())
}

func (a *agent) status() *domain.Status {
	s, err := a.store.Current()
	Expect(err).NotTo(HaveOccurred())
	return s
}

func (a *agent) monitoring() domain.MonitoringState {
	if s := a.status(); s != nil {
		return s.Monitoring
	}
	return domain.Stopped
}

func (a *agent) frame(pid int) func() domain.Geometry {
	return func() domain.Geometry {
		g, _ := a.desktop.Frame(pid)
		return g
	}
}

var _ = Describe("Agent", func() {
	var (
		dataDir string
		desktop *fixtures.FakeDesktop
		a       *agent
	)

	BeforeEach(func() {
		var err error
		dataDir, err = os.MkdirTemp("", "winfit-integration-*")
		Expect(err).NotTo(HaveOccurred())
		desktop = fixtures.NewFakeDesktop(true)
	})

	AfterEach(func() {
		if a != nil {
			a.stop()
			a = nil
		}
		os.RemoveAll(dataDir)
	})

	Context("with accessibility permission", func() {
		BeforeEach(func() {
			a = startAgent(dataDir, desktop, 50*time.Millisecond)
			a.waitRunning()
		})

		It("snaps an activated app's window onto the target", func() {
			desktop.Launch(101, "Safari", offset)
			desktop.Activate(101)

			Eventually(a.frame(101), time.Second).Should(Equal(target))
			Eventually(func() string {
				if s := a.status(); s != nil {
					return s.LastApp
				}
				return ""
			}, time.Second).Should(Equal("Safari"))
			Expect(desktop.OpenHandles()).To(BeZero())
		})

		It("uses the narrower frame for Xcode", func() {
			desktop.Launch(102, "Xcode", offset)
			desktop.Activate(102)

			Eventually(func() float64 { return a.frame(102)().Width }, time.Second).
				Should(Equal(float64(policy.XcodeWidth)))
			Expect(a.frame(102)().Point).To(Equal(target.Point))
		})

		It("leaves a window already at target untouched", func() {
			desktop.Launch(103, "Notes", target)
			desktop.Activate(103)

			Eventually(func() domain.ReconcileOutcome {
				if s := a.status(); s != nil {
					return s.LastOutcome
				}
				return ""
			}, time.Second).Should(Equal(domain.OutcomeAtTarget))
			Expect(desktop.Writes(103)).To(BeZero())
		})

		It("leaves a fixed-size window alone", func() {
			desktop.LaunchWindowless(104, "Calculator")
			desktop.OpenWindow(104, offset, false)
			desktop.Activate(104)

			Eventually(func() domain.ReconcileOutcome {
				if s := a.status(); s != nil && s.LastApp == "Calculator" {
					return s.LastOutcome
				}
				return ""
			}, time.Second).Should(Equal(domain.OutcomeNotResizable))
			Expect(a.frame(104)()).To(Equal(offset))
		})

		It("reconciles a launched app after the launch delay", func() {
			desktop.LaunchWindowless(105, "Mail")
			// The window shows up before the deferred reconcile runs
			desktop.OpenWindow(105, offset, true)

			Eventually(a.frame(105), time.Second).Should(Equal(target))
		})

		It("stops on user request and stays stopped across permission changes", func() {
			Expect(a.settings.SetMonitoringEnabled(false)).To(Succeed())
			Eventually(func() bool {
				s := a.status()
				return s != nil && s.UserStopped && s.Monitoring == domain.Stopped
			}, time.Second).Should(BeTrue())

			desktop.SetTrusted(false)
			Eventually(func() domain.PermissionState { return a.status().Permission }, time.Second).
				Should(Equal(domain.NotGranted))
			desktop.SetTrusted(true)
			Eventually(func() domain.PermissionState { return a.status().Permission }, time.Second).
				Should(Equal(domain.Granted))

			desktop.Launch(107, "Safari", offset)
			desktop.Activate(107)
			Consistently(a.frame(107), 150*time.Millisecond).Should(Equal(offset))

			Expect(a.settings.SetMonitoringEnabled(true)).To(Succeed())
			Eventually(a.monitoring, time.Second).Should(Equal(domain.Running))
		})
	})

	Context("without accessibility permission", func() {
		BeforeEach(func() {
			desktop.SetTrusted(false)
			a = startAgent(dataDir, desktop, 10*time.Millisecond)
			Eventually(a.status, time.Second).ShouldNot(BeNil())
		})

		It("waits, then starts monitoring once permission is granted", func() {
			Consistently(a.monitoring, 100*time.Millisecond).Should(Equal(domain.Stopped))

			desktop.SetTrusted(true)
			a.waitRunning()

			desktop.Launch(201, "Terminal", offset)
			desktop.Activate(201)
			Eventually(a.frame(201), time.Second).Should(Equal(target))
		})
	})

	Context("with a stored ignore list", func() {
		BeforeEach(func() {
			store, err := openStore(dataDir)
			Expect(err).NotTo(HaveOccurred())
			_, _, err = usecase.NewSettings(store, nil, zap.NewNop()).AddIgnored("Zoom")
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Close()).To(Succeed())

			a = startAgent(dataDir, desktop, 10*time.Millisecond)
			a.waitRunning()
		})

		It("skips apps whose name contains an entry", func() {
			desktop.Launch(301, "zoom.us Zoom", offset)
			desktop.Activate(301)

			Eventually(func() domain.ReconcileOutcome {
				if s := a.status(); s != nil && s.LastApp == "zoom.us Zoom" {
					return s.LastOutcome
				}
				return ""
			}, time.Second).Should(Equal(domain.OutcomeIgnored))
			Expect(a.frame(301)()).To(Equal(offset))
		})

		It("matches entries case-sensitively", func() {
			desktop.Launch(302, "zoomer", offset)
			desktop.Activate(302)

			Eventually(a.frame(302), time.Second).Should(Equal(target))
		})

		It("picks up entries removed while running", func() {
			_, removed, err := a.settings.RemoveIgnored("Zoom")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeTrue())

			// Give the store watcher time to deliver the change
			time.Sleep(100 * time.Millisecond)

			desktop.Launch(303, "Zoom", offset)
			desktop.Activate(303)
			Eventually(a.frame(303), time.Second).Should(Equal(target))
		})
	})
})
