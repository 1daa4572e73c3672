package k8s

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"gitlab.com/tinyland/lab/pulsebar/pkg/engine/enginetest"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
)

// ---------- Mock K8sClient ----------

// mockClient implements K8sClient with configurable return values.
type mockClient struct {
	nodes       []corev1.Node
	nodesErr    error
	pods        []corev1.Pod
	podsErr     error
	deployments []appsv1.Deployment
	depsErr     error
	namespace   string
}

func (m *mockClient) ListNodes(_ context.Context) ([]corev1.Node, error) {
	return m.nodes, m.nodesErr
}

func (m *mockClient) ListPods(_ context.Context, namespace string) ([]corev1.Pod, error) {
	m.namespace = namespace
	return m.pods, m.podsErr
}

func (m *mockClient) ListDeployments(_ context.Context, _ string) ([]appsv1.Deployment, error) {
	return m.deployments, m.depsErr
}

// ---------- Helper builders ----------

func makeNode(name string, ready bool) corev1.Node {
	status := corev1.ConditionFalse
	if ready {
		status = corev1.ConditionTrue
	}
	return corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeMemoryPressure, Status: corev1.ConditionFalse},
				{Type: corev1.NodeReady, Status: status},
			},
		},
	}
}

func makePod(name string, phase corev1.PodPhase) corev1.Pod {
	return corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
		Status:     corev1.PodStatus{Phase: phase},
	}
}

func makeDeployment(name string, replicas, ready int32) appsv1.Deployment {
	return appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "apps"},
		Spec:       appsv1.DeploymentSpec{Replicas: &replicas},
		Status:     appsv1.DeploymentStatus{ReadyReplicas: ready},
	}
}

// mockFactory returns a clientFactory that maps context names to clients.
// The empty context resolves to "current".
func mockFactory(clients map[string]*mockClient) clientFactory {
	return func(_, ctxName string) (K8sClient, string, error) {
		name := ctxName
		if name == "" {
			name = "current"
		}
		c, ok := clients[name]
		if !ok {
			return nil, name, errors.New("context not found")
		}
		return c, name, nil
	}
}

func healthyCluster() *mockClient {
	return &mockClient{
		nodes: []corev1.Node{makeNode("a", true), makeNode("b", true)},
		pods: []corev1.Pod{
			makePod("p1", corev1.PodRunning),
			makePod("p2", corev1.PodRunning),
			makePod("p3", corev1.PodPending),
		},
		deployments: []appsv1.Deployment{makeDeployment("web", 2, 2)},
	}
}

func TestIsNodeReady(t *testing.T) {
	ready := makeNode("a", true)
	notReady := makeNode("b", false)
	if !isNodeReady(&ready) {
		t.Error("isNodeReady(ready) = false")
	}
	if isNodeReady(&notReady) {
		t.Error("isNodeReady(notReady) = true")
	}
	if isNodeReady(nil) {
		t.Error("isNodeReady(nil) = true")
	}
	var bare corev1.Node
	if isNodeReady(&bare) {
		t.Error("node without conditions reported ready")
	}
}

func TestCountPodPhases(t *testing.T) {
	pods := []corev1.Pod{
		makePod("a", corev1.PodRunning),
		makePod("b", corev1.PodFailed),
		makePod("c", corev1.PodPending),
		makePod("d", corev1.PodSucceeded),
		makePod("e", corev1.PodRunning),
	}
	running, pending, failed := countPodPhases(pods)
	if running != 2 || pending != 1 || failed != 1 {
		t.Errorf("countPodPhases = %d/%d/%d, want 2/1/1", running, pending, failed)
	}
}

func TestDegradedDeployments(t *testing.T) {
	deps := []appsv1.Deployment{
		makeDeployment("ok", 3, 3),
		makeDeployment("short", 3, 1),
		{ObjectMeta: metav1.ObjectMeta{Name: "nil-replicas", Namespace: "x"}},
	}
	got := degradedDeployments(deps)
	if strings.Join(got, ",") != "apps/short,x/nil-replicas" {
		t.Errorf("degradedDeployments = %v", got)
	}
}

func TestCollectHealthy(t *testing.T) {
	it := newWithFactory(Config{Namespace: "default"}, mockFactory(map[string]*mockClient{"current": healthyCluster()}))
	info := it.collect(context.Background(), "")

	if !info.Connected || info.Context != "current" {
		t.Fatalf("info = %+v", info)
	}
	if info.ReadyNodes != 2 || info.TotalNodes != 2 {
		t.Errorf("nodes = %d/%d, want 2/2", info.ReadyNodes, info.TotalNodes)
	}
	if info.RunningPods != 2 || info.PendingPods != 1 {
		t.Errorf("pods = %d running %d pending", info.RunningPods, info.PendingPods)
	}
	if len(info.Degraded) != 0 {
		t.Errorf("degraded = %v", info.Degraded)
	}
	if c := it.clients[""].(*mockClient); c.namespace != "default" {
		t.Errorf("pods listed in %q, want default", c.namespace)
	}
}

func TestCollectNodesError(t *testing.T) {
	mc := &mockClient{nodesErr: errors.New("connection refused")}
	it := newWithFactory(Config{}, mockFactory(map[string]*mockClient{"current": mc}))
	info := it.collect(context.Background(), "")
	if info.Connected {
		t.Error("Connected = true after ListNodes failed")
	}
	if !strings.Contains(info.Error, "connection refused") {
		t.Errorf("Error = %q", info.Error)
	}
}

func TestCollectCachesClients(t *testing.T) {
	calls := 0
	inner := mockFactory(map[string]*mockClient{"current": healthyCluster()})
	it := newWithFactory(Config{}, func(kc, name string) (K8sClient, string, error) {
		calls++
		return inner(kc, name)
	})
	it.collect(context.Background(), "")
	it.collect(context.Background(), "")
	if calls != 1 {
		t.Errorf("factory called %d times, want 1", calls)
	}
}

func TestItemRendersHealthyCluster(t *testing.T) {
	h := enginetest.New(t, nil)
	h.Start(newWithFactory(Config{Interval: time.Hour}, mockFactory(map[string]*mockClient{"current": healthyCluster()})))

	got := h.Next()
	if got.FullText != "current 2/2 nodes 2 pods" {
		t.Errorf("text = %q", got.FullText)
	}
	if got.Color == nil || *got.Color != h.Theme.Green {
		t.Errorf("color = %v, want green", got.Color)
	}
}

func TestItemRendersProblems(t *testing.T) {
	mc := healthyCluster()
	mc.nodes[1] = makeNode("b", false)
	mc.pods = append(mc.pods, makePod("bad", corev1.PodFailed))
	mc.deployments = append(mc.deployments, makeDeployment("api", 2, 0))

	h := enginetest.New(t, nil)
	h.Start(newWithFactory(Config{Interval: time.Hour}, mockFactory(map[string]*mockClient{"current": mc})))

	got := h.Next()
	for _, want := range []string{"1/2 nodes", "1 failed", "1 degraded"} {
		if !strings.Contains(got.FullText, want) {
			t.Errorf("text %q does not contain %q", got.FullText, want)
		}
	}
	if got.Color == nil || *got.Color != h.Theme.Yellow {
		t.Errorf("color = %v, want yellow", got.Color)
	}
}

func TestItemPagesThroughContexts(t *testing.T) {
	clients := map[string]*mockClient{"prod": healthyCluster()}
	h := enginetest.New(t, nil)
	h.Start(newWithFactory(Config{Interval: time.Hour, Contexts: []string{"prod", "lab"}}, mockFactory(clients)))

	first := h.Next()
	if !strings.HasPrefix(first.FullText, "prod ") || !strings.Contains(first.FullText, "(1/2)") {
		t.Errorf("first = %q", first.FullText)
	}

	h.Click(i3.ButtonLeft)
	second := h.Next()
	if !strings.HasPrefix(second.FullText, "lab unreachable") || !strings.Contains(second.FullText, "(2/2)") {
		t.Errorf("second = %q", second.FullText)
	}
	if second.Color == nil || *second.Color != h.Theme.Red {
		t.Errorf("color = %v, want red", second.Color)
	}
}
