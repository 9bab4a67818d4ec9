/*
 * Copyright 2023 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/endpoint/rest"
	"github.com/rulego/flowgraph/engine"
	"github.com/rulego/flowgraph/savegame"
	"github.com/rulego/flowgraph/test"
	"github.com/rulego/flowgraph/world"
)

// doorAsset start -> d1(2s) -> end, custom input Open -> end
func doorAsset() *types.FlowAssetDef {
	def := test.Asset("door",
		test.Nodes(
			test.Node("start", "start", nil),
			test.Node("d1", "delay", types.Configuration{"periodInSeconds": 2}),
			test.Node("open", "customInput", types.Configuration{"eventName": "Open"}),
			test.Node("end", "finish", nil),
		),
		test.Connect("start", "Out", "d1", "In"),
		test.Connect("d1", "Completed", "end", "In"),
		test.Connect("open", "Out", "end", "In"),
	)
	def.Asset.CustomInputs = []string{"Open"}
	return def
}

type fixture struct {
	flow   *test.Flow
	server *httptest.Server
}

func newFixture(t *testing.T, withSaves bool) *fixture {
	f := test.NewFlow(t, doorAsset())
	var saves *savegame.Manager
	if withSaves {
		saves = savegame.NewManager(savegame.NewMemoryStore(), f.Subsystem, nil)
	}
	r := rest.New(rest.Config{}, f.Subsystem, nil, saves)
	server := httptest.NewServer(r.Router())
	t.Cleanup(server.Close)
	return &fixture{flow: f, server: server}
}

func (f *fixture) do(t *testing.T, method string, path string, body interface{}, out interface{}) int {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.Nil(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.server.URL+"/api/v1"+path, reader)
	require.Nil(t, err)
	req.Header.Set(rest.ContentTypeKey, rest.JsonContextType)
	resp, err := http.DefaultClient.Do(req)
	require.Nil(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.Nil(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestAssets(t *testing.T) {
	f := newFixture(t, false)
	var ids []string
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/assets", nil, &ids))
	assert.Equal(t, []string{"door"}, ids)

	var def types.FlowAssetDef
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/assets/door", nil, &def))
	assert.Equal(t, "door", def.Asset.Id)
	assert.Equal(t, 4, len(def.Metadata.Nodes))

	var errResp map[string]string
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/assets/chest", nil, &errResp))
	assert.NotEqual(t, "", errResp["error"])

	chest := test.Asset("chest", test.Nodes(test.Node("start", "start", nil)))
	var created map[string]string
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/assets", chest, &created))
	assert.Equal(t, "chest", created["id"])

	invalid := test.Asset("broken", test.Nodes(test.Node("x", "noSuchNode", nil)))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/assets", invalid, nil))

	cyclic := test.Asset("echo",
		test.Nodes(
			test.Node("start", "start", nil),
			test.Node("l1", "log", nil),
			test.Node("l2", "log", nil),
		),
		test.Connect("start", "Out", "l1", "In"),
		test.Connect("l1", "Out", "l2", "In"),
		test.Connect("l2", "Out", "l1", "In"),
	)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/assets", cyclic, &errResp))
	assert.Contains(t, errResp["error"], "l1 -> l2 -> l1")

	var valid map[string]interface{}
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/assets/chest/validate", nil, &valid))
	assert.Equal(t, true, valid["valid"])

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/assets/chest", nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/assets/chest", nil, nil))
}

func TestRootFlows(t *testing.T) {
	f := newFixture(t, false)
	var view map[string]interface{}
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/flows/door1/start", map[string]string{"assetId": "door", "instanceName": "door_1"}, &view))
	assert.Equal(t, "door_1", view["id"])
	assert.Equal(t, "door1", view["ownerId"])
	assert.Equal(t, []interface{}{"d1"}, view["activeNodes"])

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/flows/door2/start", nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/flows/door2/start", map[string]string{"assetId": "chest"}, nil))

	var list []map[string]interface{}
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/instances", nil, &list))
	require.Equal(t, 1, len(list))
	assert.Equal(t, "door", list[0]["assetId"])

	var detail struct {
		Nodes []struct {
			Id     string `json:"id"`
			State  string `json:"state"`
			Status string `json:"status"`
		} `json:"nodes"`
	}
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/instances/door_1", nil, &detail))
	states := map[string]string{}
	for _, n := range detail.Nodes {
		states[n.Id] = n.State
	}
	assert.Equal(t, "Active", states["d1"])
	assert.Equal(t, "NeverActivated", states["end"])
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/instances/nope", nil, nil))

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/flows/door1/finish?policy=explode", nil, nil))
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/flows/door1/finish?policy=abort", nil, nil))
	_, ok := f.flow.Subsystem.RootFlow("door1")
	assert.False(t, ok)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/flows/door1/finish", nil, nil))

	//自定义输入结束流程后根流程被销毁
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/flows/door1/start", map[string]string{"assetId": "door"}, nil))
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/flows/door1/inputs/Open", nil, nil))
	_, ok = f.flow.Subsystem.RootFlow("door1")
	assert.False(t, ok)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/flows/door1/inputs/Open", nil, nil))
}

func TestComponents(t *testing.T) {
	f := newFixture(t, false)
	door := engine.NewFlowComponent("door1", world.NewActor("door1", "Door"), "Door.Locked")
	require.Nil(t, door.BeginPlay(f.flow.Subsystem))
	var notified []types.Tag
	door.SubscribeNotify(func(component types.Component, tag types.Tag) {
		notified = append(notified, tag)
	})

	var list []map[string]interface{}
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/components", nil, &list))
	require.Equal(t, 1, len(list))
	assert.Equal(t, "door1", list[0]["id"])

	var view struct {
		Tags []string `json:"tags"`
	}
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/components/door1/tags", map[string]interface{}{"tags": []string{"Door.Open"}}, &view))
	assert.ElementsMatch(t, []string{"Door.Locked", "Door.Open"}, view.Tags)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/components/door1/tags", map[string]interface{}{"tags": []string{"Door.Locked"}, "netMode": "local"}, &view))
	assert.Equal(t, []string{"Door.Open"}, view.Tags)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/components/door1/tags", map[string]interface{}{"tags": []string{"A"}, "netMode": "broadcast"}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/components/door1/tags", map[string]interface{}{}, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/components/ghost/tags", map[string]interface{}{"tags": []string{"A"}}, nil))

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/components/door1/notify", map[string]interface{}{"tags": []string{"Event.Knock"}}, nil))
	assert.Equal(t, []types.Tag{"Event.Knock"}, notified)
}

func TestSaves(t *testing.T) {
	f := newFixture(t, true)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/flows/door1/start", map[string]string{"assetId": "door"}, nil))
	f.flow.Tick(0.5)

	var saved map[string]interface{}
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/saves/quick", nil, &saved))
	assert.Equal(t, "quick", saved["slot"])
	assert.Equal(t, float64(1), saved["instances"])

	var slots []string
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/saves", nil, &slots))
	assert.Equal(t, []string{"quick"}, slots)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/flows/door1/finish", nil, nil))
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/saves/quick/load", nil, nil))
	x, ok := f.flow.Subsystem.RootFlow("door1")
	require.True(t, ok)
	assert.Equal(t, []string{"d1"}, x.ActiveNodes())

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/saves/missing/load", nil, nil))
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/saves/quick", nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/saves/quick", nil, nil))

	noSaves := newFixture(t, false)
	assert.Equal(t, http.StatusNotFound, noSaves.do(t, http.MethodGet, "/saves", nil, nil))
}

func TestStartStop(t *testing.T) {
	f := test.NewFlow(t, doorAsset())
	ctx, cancel := context.WithCancel(context.Background())
	loop := world.NewLoop(f.Timers, 0, types.NopLogger())
	go loop.Run(ctx, 10*time.Millisecond)
	defer cancel()

	r := rest.New(rest.Config{Server: "127.0.0.1:0"}, f.Subsystem, loop, nil)
	require.Nil(t, r.Start())
	assert.NotNil(t, r.Start())
	resp, err := http.Get("http://" + r.Addr() + "/api/v1/assets")
	require.Nil(t, err)
	var ids []string
	require.Nil(t, json.NewDecoder(resp.Body).Decode(&ids))
	_ = resp.Body.Close()
	assert.Equal(t, []string{"door"}, ids)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.Nil(t, r.Stop(stopCtx))
	assert.Equal(t, "", r.Addr())
	require.Nil(t, r.Stop(stopCtx))
}
