//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
	"github.com/eliteGoblin/focusd/winfit/internal/infra"
	"github.com/eliteGoblin/focusd/winfit/internal/usecase"
)

var _ = Describe("Encrypted store", func() {
	var (
		dataDir string
		key     []byte
		store   *infra.EncryptedStore
	)

	BeforeEach(func() {
		var err error
		dataDir, err = os.MkdirTemp("", "winfit-store-*")
		Expect(err).NotTo(HaveOccurred())

		key, err = infra.EnsureKey(infra.NewFileKeyProvider(dataDir), dataDir)
		Expect(err).NotTo(HaveOccurred())

		store, err = infra.NewEncryptedStore(dataDir, key)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
		os.RemoveAll(dataDir)
	})

	It("shares preferences between processes using the same key", func() {
		cli := usecase.NewSettings(store, nil, zap.NewNop())
		_, _, err := cli.AddIgnored("Finder")
		Expect(err).NotTo(HaveOccurred())
		Expect(cli.SetMonitoringEnabled(false)).To(Succeed())

		sameKey, err := infra.EnsureKey(infra.NewFileKeyProvider(dataDir), dataDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(sameKey).To(Equal(key))

		other, err := infra.NewEncryptedStore(dataDir, sameKey)
		Expect(err).NotTo(HaveOccurred())
		defer other.Close()

		daemonSide := usecase.NewSettings(other, nil, zap.NewNop())
		list, err := daemonSide.IgnoreList()
		Expect(err).NotTo(HaveOccurred())
		Expect(list.Entries()).To(ConsistOf("Finder"))

		enabled, err := daemonSide.MonitoringEnabled()
		Expect(err).NotTo(HaveOccurred())
		Expect(enabled).To(BeFalse())
	})

	It("rejects the wrong key", func() {
		Expect(store.Set("canary", "1")).To(Succeed())

		wrong, err := infra.GenerateKey()
		Expect(err).NotTo(HaveOccurred())

		_, err = infra.NewEncryptedStore(dataDir, wrong)
		Expect(err).To(HaveOccurred())
	})

	It("never replaces the key of an existing store", func() {
		Expect(store.Set("canary", "1")).To(Succeed())
		Expect(os.Remove(filepath.Join(dataDir, ".key"))).To(Succeed())

		_, err := infra.EnsureKey(infra.NewFileKeyProvider(dataDir), dataDir)
		Expect(err).To(MatchError(infra.ErrKeyUnavailable))
		_, err = os.Stat(filepath.Join(dataDir, ".key"))
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("publishes and clears the daemon status", func() {
		Expect(store.Publish(domain.Status{
			PID:         os.Getpid(),
			Monitoring:  domain.Running,
			Permission:  domain.Granted,
			LastApp:     "Safari",
			LastOutcome: domain.OutcomeMoved,
		})).To(Succeed())
		Expect(store.UpdateHeartbeat()).To(Succeed())

		s, err := store.Current()
		Expect(err).NotTo(HaveOccurred())
		Expect(s).NotTo(BeNil())
		Expect(s.LastApp).To(Equal("Safari"))
		Expect(s.LastHeartbeat).To(BeNumerically(">", 0))

		Expect(store.Clear()).To(Succeed())
		s, err = store.Current()
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeNil())
	})

	It("notifies the store watcher on preference writes only", func() {
		w, err := infra.NewStoreWatcher(dataDir, 10*time.Millisecond, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = w.Run(ctx) }()

		// Give the watcher a moment to start reading events
		time.Sleep(20 * time.Millisecond)

		Expect(store.Publish(domain.Status{PID: 1})).To(Succeed())
		Consistently(w.Changes(), 100*time.Millisecond).ShouldNot(Receive())

		Expect(store.Set(usecase.KeyLaunchAtLogin, "true")).To(Succeed())
		Eventually(w.Changes(), time.Second).Should(Receive())
	})
})
