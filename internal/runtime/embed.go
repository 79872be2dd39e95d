package runtime

import "fmt"

// EmbedModes accepted on /embed.js.
var EmbedModes = map[string]bool{
	"inline":  true,
	"modal":   true,
	"sidebar": true,
}

// EmbedScript generates the loader script a host page includes. It mounts
// the rendered form, wires masks, rules, steps and beacons, and posts
// submissions back to the server.
func EmbedScript(serverURL, slug, mode string) string {
	if !EmbedModes[mode] {
		mode = "inline"
	}
	return fmt.Sprintf(`(function(){
  var S='%s',F='%s',M='%s';

  var vid=localStorage.getItem('fl_vid');
  if(!vid){
    vid=crypto.randomUUID();
    localStorage.setItem('fl_vid',vid);
  }

  var started=false;

  function mount(html){
    var host;
    if(M==='inline'){
      host=document.querySelector('[data-fl-mount="'+F+'"]')||document.currentScript&&document.currentScript.parentNode||document.body;
      var wrap=document.createElement('div');
      wrap.innerHTML=html;
      host.appendChild(wrap);
      wire(wrap);
    }else{
      var overlay=document.createElement('div');
      overlay.className='fl-overlay fl-overlay-'+M;
      overlay.style.cssText='position:fixed;inset:0;background:rgba(0,0,0,0.5);z-index:99999;display:flex;'+(M==='sidebar'?'justify-content:flex-end':'align-items:center;justify-content:center');
      var panel=document.createElement('div');
      panel.style.cssText=M==='sidebar'?'height:100%%;width:420px;max-width:90vw;overflow:auto;background:#fff':'max-height:90vh;overflow:auto;border-radius:8px;background:#fff';
      panel.innerHTML=html;
      overlay.appendChild(panel);
      overlay.addEventListener('click',function(ev){if(ev.target===overlay)overlay.remove()});
      document.body.appendChild(overlay);
      wire(panel);
    }
  }

  function wire(root){
    var form=root.querySelector('.fl-form');
    if(!form)return;
    var steps=parseInt(form.dataset.flSteps||'1');
    var step=0;

    beacon('view');

    form.addEventListener('input',function(ev){
      if(!started){started=true;beacon('start')}
      var mask=ev.target.dataset&&ev.target.dataset.flMask;
      if(mask)ev.target.value=applyMask(mask,ev.target.value);
      evaluate(root,form);
    });

    if(steps>1)showStep(root,step,steps);

    form.addEventListener('submit',function(ev){
      ev.preventDefault();
      if(step<steps-1){
        var d=root._flDecision;
        step=(d&&d.skip_to_step!=null&&d.skip_to_step>step)?d.skip_to_step:step+1;
        if(step>steps-1)step=steps-1;
        showStep(root,step,steps);
        return;
      }
      submit(root,form);
    });
  }

  function showStep(root,step,steps){
    root.querySelectorAll('[data-fl-step]').forEach(function(el){
      el.style.display=parseInt(el.dataset.flStep)===step?'':'none';
    });
    var btn=root.querySelector('.fl-submit');
    if(btn)btn.textContent=step<steps-1?'Avançar':btn.dataset.flLabel||btn.textContent;
  }

  function values(form){
    var out={};
    form.querySelectorAll('[data-fl-id]').forEach(function(el){
      var id=el.dataset.flId;
      if(el.type==='radio'||el.type==='checkbox'){
        if(el.checked)out[id]=el.value;
        else if(out[id]===undefined)out[id]='';
      }else{
        out[id]=el.value||'';
      }
    });
    return out;
  }

  function evaluate(root,form){
    fetch(S+'/f/'+F+'/evaluate',{
      method:'POST',
      headers:{'Content-Type':'application/json'},
      body:JSON.stringify({values:values(form)})
    }).then(function(r){return r.json()}).then(function(d){
      root._flDecision=d;
      root.querySelectorAll('[data-fl-field]').forEach(function(el){
        var id=el.dataset.flField;
        if(d.hidden&&d.hidden[id])el.style.display='none';
        else if(d.shown&&d.shown[id])el.style.display='';
      });
      if(d.set_values)Object.keys(d.set_values).forEach(function(id){
        var el=form.querySelector('[data-fl-id="'+id+'"]');
        if(el&&'value' in el)el.value=d.set_values[id];
      });
    }).catch(function(){});
  }

  function submit(root,form){
    root.querySelectorAll('.fl-error').forEach(function(el){el.textContent=''});
    fetch(S+'/f/'+F+'/submit',{
      method:'POST',
      headers:{'Content-Type':'application/json'},
      body:JSON.stringify({vid:vid,values:values(form)})
    }).then(function(r){return r.json().then(function(d){return{ok:r.ok,d:d}})}).then(function(res){
      if(!res.ok){
        var errs=res.d.errors||{};
        Object.keys(errs).forEach(function(id){
          var el=root.querySelector('[data-fl-error="'+id+'"]');
          if(el)el.textContent=errs[id];
        });
        return;
      }
      beacon('submit');
      var ps=res.d.post_submit||{};
      var d=root._flDecision;
      if(d&&d.redirect_url){location.href=d.redirect_url;return}
      if(ps.action==='redirect'&&ps.redirect_url){location.href=ps.redirect_url;return}
      form.innerHTML='<p class="fl-success">'+(ps.message||'Obrigado! Recebemos sua resposta.')+'</p>';
    }).catch(function(){});
  }

  function beacon(e){
    navigator.sendBeacon(S+'/b',JSON.stringify({f:F,e:e,vid:vid}));
  }

  function applyMask(kind,v){
    var d=v.replace(/\D/g,'');
    switch(kind){
    case 'cpf':
      d=d.slice(0,11);
      return d.replace(/^(\d{3})(\d)/,'$1.$2').replace(/^(\d{3})\.(\d{3})(\d)/,'$1.$2.$3').replace(/\.(\d{3})(\d)/,'.$1-$2');
    case 'cnpj':
      d=d.slice(0,14);
      return d.replace(/^(\d{2})(\d)/,'$1.$2').replace(/^(\d{2})\.(\d{3})(\d)/,'$1.$2.$3').replace(/\.(\d{3})(\d)/,'.$1/$2').replace(/(\d{4})(\d)/,'$1-$2');
    case 'cep':
      d=d.slice(0,8);
      return d.replace(/^(\d{5})(\d)/,'$1-$2');
    case 'phone':
      d=d.slice(0,11);
      if(d.length>10)return d.replace(/^(\d{2})(\d{5})(\d{0,4})/,'($1) $2-$3');
      return d.replace(/^(\d{2})(\d{4})(\d{0,4})/,'($1) $2-$3');
    case 'currency':
      d=d.replace(/^0+/,'')||'0';
      while(d.length<3)d='0'+d;
      var cents=d.slice(-2),intp=d.slice(0,-2);
      return 'R$ '+intp.replace(/\B(?=(\d{3})+(?!\d))/g,'.')+','+cents;
    }
    return v;
  }

  fetch(S+'/f/'+F+'?vid='+encodeURIComponent(vid)+'&format=html')
    .then(function(r){
      if(!r.ok)throw 0;
      return r.text();
    })
    .then(mount)
    .catch(function(){});
})();`, serverURL, slug, mode)
}
